package inmem

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/shiksha/core"
	"github.com/trezcool/shiksha/core/staff"
)

type staffRepository struct {
	db *DB
}

var _ staff.Repository = (*staffRepository)(nil)

func NewStaffRepository(db *DB) *staffRepository {
	return &staffRepository{db: db}
}

func (repo *staffRepository) CheckUniqueness(ctx context.Context, username, email string, excluded []staff.Staff, exec ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	isExcluded := func(stf staff.Staff) bool {
		for _, ex := range excluded {
			if ex.ID == stf.ID {
				return true
			}
		}
		return false
	}
	for _, stf := range repo.db.staff {
		if isExcluded(stf) {
			continue
		}
		if username != "" && stf.Username == username {
			return staff.ErrUsernameExists
		}
		if email != "" && stf.Email == email {
			return staff.ErrEmailExists
		}
	}
	return nil
}

func (repo *staffRepository) CreateStaff(ctx context.Context, stf staff.Staff, exec ...core.DBExecutor) (staff.Staff, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, other := range repo.db.staff {
		if stf.Username != "" && other.Username == stf.Username {
			return staff.Staff{}, staff.ErrUsernameExists
		}
		if stf.Email != "" && other.Email == stf.Email {
			return staff.Staff{}, staff.ErrEmailExists
		}
	}
	stf.ID = uuid.New().String()
	repo.db.staff = append(repo.db.staff, stf)
	return stf, nil
}

func (repo *staffRepository) QueryAllStaff(ctx context.Context, exec ...core.DBExecutor) ([]staff.Staff, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	return append([]staff.Staff(nil), repo.db.staff...), nil
}

func (repo *staffRepository) GetStaff(ctx context.Context, filter staff.GetFilter, exec ...core.DBExecutor) (staff.Staff, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, stf := range repo.db.staff {
		switch {
		case filter.ID != "":
			if stf.ID == filter.ID {
				return stf, nil
			}
		case filter.Username != "":
			if stf.Username == filter.Username {
				return stf, nil
			}
		case filter.Email != "":
			if stf.Email == filter.Email {
				return stf, nil
			}
		default:
			if stf.Username == filter.UsernameOrEmail || stf.Email == filter.UsernameOrEmail {
				return stf, nil
			}
		}
	}
	return staff.Staff{}, staff.ErrNotFound
}

func (repo *staffRepository) UpdateStaff(ctx context.Context, stf staff.Staff, exec ...core.DBExecutor) (staff.Staff, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for i, other := range repo.db.staff {
		if other.ID == stf.ID {
			repo.db.staff[i] = stf
			return stf, nil
		}
	}
	return staff.Staff{}, staff.ErrNotFound
}
