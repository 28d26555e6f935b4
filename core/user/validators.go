package user

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/masomo-portal/core"
)

var (
	appRoleTag  = "approle"
	appRoleText = "select one of ADMIN, TEACHER or STUDENT"

	// password policy
	pwdMinLen     = 6
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to your name or email"

	emailLocalRegex = regexp.MustCompile(`@.*$`)
)

// InitValidators registers the user validators & their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(appRoleTag, appRoleValidation)
	core.RegisterCustomTranslation(validate, translator, appRoleTag, appRoleText)

	validate.RegisterStructValidation(accountStructValidation, NewAccount{})
	core.RegisterCustomTranslation(validate, translator, pwdMinLenTag, pwdMinLenText)
	core.RegisterCustomTranslation(validate, translator, pwdNoSpaceTag, pwdNoSpaceText)
	core.RegisterCustomTranslation(validate, translator, pwdNotAllNumTag, pwdNotAllNumText)
	core.RegisterCustomTranslation(validate, translator, pwdAttrSimTag, pwdAttrSimText)
}

func (c *Credentials) Validate(validate *validator.Validate) error {
	c.Clean()
	return validate.Struct(c)
}

func (na *NewAccount) Validate(validate *validator.Validate) error {
	na.Clean()
	return validate.Struct(na)
}

// Custom Validators

// appRoleValidation checks that the role is one of AllRoles
func appRoleValidation(fl validator.FieldLevel) bool {
	switch role := fl.Field().Interface().(type) {
	case Role:
		return role.IsValid()
	case string:
		return Role(role).IsValid()
	}
	return false
}

// accountStructValidation does struct level validation on NewAccount.
func accountStructValidation(sl validator.StructLevel) {
	if acct, ok := sl.Current().Interface().(NewAccount); ok && acct.Password != "" {
		validatePassword(acct.Password, acct.FullName, acct.Email, sl)
	}
}

// validatePassword applies the sign-up password policy:
// - minLen: 6
// - no whitespace
// - no all numeric
// - no user attrs similarity
func validatePassword(pwd, name, email string, sl validator.StructLevel) {
	reportErr := func(tag string) {
		sl.ReportError(pwd, "password", "Password", tag, "")
	}

	pwdLen := len([]rune(pwd))
	if pwdLen < pwdMinLen {
		reportErr(pwdMinLenTag)
		return
	}

	var digitCount int
	for _, char := range pwd {
		if unicode.IsSpace(char) {
			reportErr(pwdNoSpaceTag)
			return
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
	}
	if digitCount == pwdLen {
		reportErr(pwdNotAllNumTag)
		return
	}

	getRatio := func(pass, usrAttr string) float64 {
		if usrAttr == "" {
			return 0
		}
		return difflib.NewMatcher(strings.Split(pass, ""), strings.Split(usrAttr, "")).QuickRatio()
	}
	lpwd := strings.ToLower(pwd)
	if getRatio(lpwd, strings.ToLower(name)) >= pwdMaxSim ||
		getRatio(lpwd, email) >= pwdMaxSim ||
		getRatio(lpwd, emailLocalRegex.ReplaceAllString(email, "")) >= pwdMaxSim {
		reportErr(pwdAttrSimTag)
	}
}
