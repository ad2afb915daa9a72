package staff

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/shiksha/core"
)

var (
	staffRolesTag  = "staffroles"
	staffRolesText = "invalid roles"

	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to account attributes"

	pwdNoCommonTag  = "pwdnocommon"
	pwdNoCommonText = "password is too common"
	commonPasswords = make([]string, 0, 19727) // number of total pwds in /assets/common-passwords.txt.gz

	whitespaceRegex = regexp.MustCompile(`\s`)
)

func init() {
	// register validators
	_ = core.Validate.RegisterValidation(staffRolesTag, staffRolesValidation)
	core.RegisterCustomTranslation(staffRolesTag, staffRolesText)

	core.Validate.RegisterStructValidation(staffStructValidation, NewStaff{})
	core.Validate.RegisterStructValidation(staffStructValidation, ResetStaffPassword{})
	core.RegisterCustomTranslation(pwdMinLenTag, pwdMinLenText)
	core.RegisterCustomTranslation(pwdNoSpaceTag, pwdNoSpaceText)
	core.RegisterCustomTranslation(pwdNotAllNumTag, pwdNotAllNumText)
	core.RegisterCustomTranslation(pwdAttrSimTag, pwdAttrSimText)
	core.RegisterCustomTranslation(pwdNoCommonTag, pwdNoCommonText)
}

// LoadCommonPasswords loads the common password denylist shipped under assets.
// Password validation silently skips the check when the list is absent.
func LoadCommonPasswords(conf *core.Config, logger core.Logger) {
	path := filepath.Join(conf.WorkDir, "assets", "common-passwords.txt.gz")
	file, err := os.Open(path)
	if err != nil {
		logger.Warn(fmt.Sprintf("staff.LoadCommonPasswords(%s): %v", path, err))
		return
	}
	//goland:noinspection GoUnhandledErrorResult
	defer file.Close()

	gzRdr, err := gzip.NewReader(file)
	if err != nil {
		logger.Warn(fmt.Sprintf("staff.LoadCommonPasswords(%s): %v", path, err))
		return
	}
	scanner := bufio.NewScanner(gzRdr)
	for scanner.Scan() {
		commonPasswords = append(commonPasswords, strings.TrimSpace(scanner.Text()))
	}
	sort.Strings(commonPasswords)
}

// Custom Validators

// staffRolesValidation checks that provided roles are all in AllRoles
func staffRolesValidation(fl validator.FieldLevel) bool {
	if roles, ok := fl.Field().Interface().([]string); ok {
		all := append(make([]string, 0, len(AllRoles)), AllRoles...)
		sort.Strings(all)
		for _, role := range roles {
			idx := sort.SearchStrings(all, role)
			if idx >= len(all) || all[idx] != role {
				return false
			}
		}
		return true
	}
	return false
}

// staffStructValidation does struct level validation on NewStaff and ResetStaffPassword.
func staffStructValidation(sl validator.StructLevel) {
	switch obj := sl.Current().Interface().(type) {
	case NewStaff:
		validateUsernameAndEmail(obj, sl)
		validatePassword(obj.Password, sl, obj.Name, obj.Username, obj.Email)
	case ResetStaffPassword:
		validatePassword(obj.Password, sl)
	}
}

// validateUsernameAndEmail checks that one of Username or Email is provided
func validateUsernameAndEmail(ns NewStaff, sl validator.StructLevel) {
	if len(ns.Username) == 0 && len(ns.Email) == 0 {
		sl.ReportError(ns.Username, "username", "Username", "required_without", "")
		sl.ReportError(ns.Email, "email", "Email", "required_without", "")
	}
}

// validatePassword applies the password policy; attrs are account attributes
// the password may not resemble.
func validatePassword(pwd string, sl validator.StructLevel, attrs ...string) {
	if len(pwd) < pwdMinLen {
		sl.ReportError(pwd, "password", "Password", pwdMinLenTag, "")
	}
	if whitespaceRegex.MatchString(pwd) {
		sl.ReportError(pwd, "password", "Password", pwdNoSpaceTag, "")
	}
	if isAllNumeric(pwd) {
		sl.ReportError(pwd, "password", "Password", pwdNotAllNumTag, "")
	}
	if isTooSimilar(pwd, attrs) {
		sl.ReportError(pwd, "password", "Password", pwdAttrSimTag, "")
	}
	if isCommonPassword(pwd) {
		sl.ReportError(pwd, "password", "Password", pwdNoCommonTag, "")
	}
}

func isAllNumeric(pwd string) bool {
	if pwd == "" {
		return false
	}
	for _, r := range pwd {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// isTooSimilar measures the similarity between the password and each account
// attribute; anything above pwdMaxSim fails.
func isTooSimilar(pwd string, attrs []string) bool {
	pwd = strings.ToLower(pwd)
	for _, attr := range attrs {
		attr = strings.ToLower(strings.TrimSpace(attr))
		if attr == "" {
			continue
		}
		matcher := difflib.NewMatcher(strings.Split(pwd, ""), strings.Split(attr, ""))
		if matcher.QuickRatio() > pwdMaxSim {
			return true
		}
	}
	return false
}

func isCommonPassword(pwd string) bool {
	if len(commonPasswords) == 0 {
		return false
	}
	pwd = strings.ToLower(pwd)
	idx := sort.SearchStrings(commonPasswords, pwd)
	return idx < len(commonPasswords) && commonPasswords[idx] == pwd
}
