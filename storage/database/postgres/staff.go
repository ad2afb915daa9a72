package pgrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shiksha/core"
	"github.com/trezcool/shiksha/core/staff"
)

type staffRepository struct {
	db *sqlx.DB
}

var _ staff.Repository = (*staffRepository)(nil) // interface compliance check

func NewStaffRepository(db *sqlx.DB) *staffRepository {
	return &staffRepository{db: db}
}

func (repo staffRepository) CheckUniqueness(ctx context.Context, username, email string, excluded []staff.Staff, exec ...core.DBExecutor) error {
	excludedIDs := make([]string, 0, len(excluded))
	for _, stf := range excluded {
		excludedIDs = append(excludedIDs, stf.ID)
	}

	exe := getExec(repo.db, exec)
	check := func(column, value string, exists error) error {
		if value == "" {
			return nil
		}
		var n int
		err := exe.QueryRowContext(ctx, `
			SELECT count(id) FROM staff
			WHERE `+column+` = $1 AND NOT (id = ANY($2))`,
			value, pq.Array(excludedIDs),
		).Scan(&n)
		if err != nil {
			return errors.Wrapf(err, "checking %s uniqueness", column)
		}
		if n > 0 {
			return exists
		}
		return nil
	}

	if err := check("username", username, staff.ErrUsernameExists); err != nil {
		return err
	}
	return check("email", email, staff.ErrEmailExists)
}

func (repo staffRepository) CreateStaff(ctx context.Context, stf staff.Staff, exec ...core.DBExecutor) (staff.Staff, error) {
	stf.ID = uuid.New().String()
	_, err := getExec(repo.db, exec).ExecContext(ctx, `
		INSERT INTO staff (id, name, username, email, is_active, roles, password_hash, created_at, updated_at, last_login)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		stf.ID, stf.Name, null.NewString(stf.Username, stf.Username != ""),
		null.NewString(stf.Email, stf.Email != ""), null.BoolFromPtr(stf.IsActive),
		pq.Array(stf.Roles), stf.PasswordHash, stf.CreatedAt, stf.UpdatedAt,
		null.NewTime(stf.LastLogin, !stf.LastLogin.IsZero()),
	)
	if err != nil {
		switch violatedConstraint(err) {
		case "staff_username_key":
			return staff.Staff{}, staff.ErrUsernameExists
		case "staff_email_key":
			return staff.Staff{}, staff.ErrEmailExists
		}
		return staff.Staff{}, errors.Wrap(err, "inserting staff")
	}
	return stf, nil
}

func (repo staffRepository) QueryAllStaff(ctx context.Context, exec ...core.DBExecutor) ([]staff.Staff, error) {
	rows, err := getExec(repo.db, exec).QueryContext(ctx, `
		SELECT id, name, username, email, is_active, roles, password_hash, created_at, updated_at, last_login
		FROM staff ORDER BY created_at`)
	if err != nil {
		return nil, errors.Wrap(err, "querying staff")
	}
	defer func() { _ = rows.Close() }()

	var all []staff.Staff
	for rows.Next() {
		stf, err := scanStaff(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scanning staff")
		}
		all = append(all, stf)
	}
	return all, rows.Err()
}

func (repo staffRepository) GetStaff(ctx context.Context, filter staff.GetFilter, exec ...core.DBExecutor) (staff.Staff, error) {
	exe := getExec(repo.db, exec)
	q := `SELECT id, name, username, email, is_active, roles, password_hash, created_at, updated_at, last_login FROM staff `

	var row rowScanner
	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return staff.Staff{}, staff.ErrNotFound
		}
		row = exe.QueryRowContext(ctx, q+`WHERE id = $1`, filter.ID)
	case filter.Username != "":
		row = exe.QueryRowContext(ctx, q+`WHERE username = $1`, filter.Username)
	case filter.Email != "":
		row = exe.QueryRowContext(ctx, q+`WHERE email = $1`, filter.Email)
	default:
		row = exe.QueryRowContext(ctx, q+`WHERE username = $1 OR email = $1`, filter.UsernameOrEmail)
	}

	stf, err := scanStaff(row)
	if err != nil {
		return staff.Staff{}, trapNoRowsErr(err, staff.ErrNotFound, "finding staff")
	}
	return stf, nil
}

func (repo staffRepository) UpdateStaff(ctx context.Context, stf staff.Staff, exec ...core.DBExecutor) (staff.Staff, error) {
	res, err := getExec(repo.db, exec).ExecContext(ctx, `
		UPDATE staff
		SET name = $2, username = $3, email = $4, is_active = $5, roles = $6,
		    password_hash = $7, updated_at = $8, last_login = $9
		WHERE id = $1`,
		stf.ID, stf.Name, null.NewString(stf.Username, stf.Username != ""),
		null.NewString(stf.Email, stf.Email != ""), null.BoolFromPtr(stf.IsActive),
		pq.Array(stf.Roles), stf.PasswordHash, stf.UpdatedAt,
		null.NewTime(stf.LastLogin, !stf.LastLogin.IsZero()),
	)
	if err != nil {
		switch violatedConstraint(err) {
		case "staff_username_key":
			return staff.Staff{}, staff.ErrUsernameExists
		case "staff_email_key":
			return staff.Staff{}, staff.ErrEmailExists
		}
		return staff.Staff{}, errors.Wrap(err, "updating staff")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return staff.Staff{}, staff.ErrNotFound
	}
	return stf, nil
}

func scanStaff(row rowScanner) (staff.Staff, error) {
	var stf staff.Staff
	var username, email null.String
	var isActive null.Bool
	var roles pq.StringArray
	var hash []byte
	var createdAt, updatedAt, lastLogin null.Time
	err := row.Scan(&stf.ID, &stf.Name, &username, &email, &isActive, &roles, &hash, &createdAt, &updatedAt, &lastLogin)
	if err != nil {
		return staff.Staff{}, err
	}
	stf.Username = username.String
	stf.Email = email.String
	stf.IsActive = isActive.Ptr()
	stf.Roles = roles
	stf.PasswordHash = hash
	stf.CreatedAt = createdAt.Time
	stf.UpdatedAt = updatedAt.Time
	stf.LastLogin = lastLogin.Time
	return stf, nil
}
