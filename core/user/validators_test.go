package user

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-portal/core"
)

func newValidator() *validator.Validate {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)
	return validate
}

func fieldTags(t *testing.T, err error) map[string]string {
	t.Helper()
	if err == nil {
		return nil
	}
	vErrs, ok := err.(validator.ValidationErrors)
	require.True(t, ok, "want validator.ValidationErrors; got %T", err)
	tags := make(map[string]string, len(vErrs))
	for _, vErr := range vErrs {
		tags[vErr.Field()] = vErr.Tag()
	}
	return tags
}

func TestNewAccount_Validate(t *testing.T) {
	validate := newValidator()
	valid := NewAccount{FullName: " Amani Kabila ", Email: " Amani@Test.CD", Password: "Tr0ub4dor&3", Role: RoleTeacher}

	tests := []struct {
		name     string
		mutate   func(na *NewAccount)
		wantTags map[string]string
	}{
		{name: "valid", mutate: func(na *NewAccount) {}},
		{name: "no name", mutate: func(na *NewAccount) { na.FullName = "  " }, wantTags: map[string]string{"fullName": "required"}},
		{name: "bad email", mutate: func(na *NewAccount) { na.Email = "lol" }, wantTags: map[string]string{"email": "email"}},
		{name: "no role", mutate: func(na *NewAccount) { na.Role = "" }, wantTags: map[string]string{"role": "required"}},
		{name: "unknown role", mutate: func(na *NewAccount) { na.Role = "PRINCIPAL" }, wantTags: map[string]string{"role": "approle"}},
		{name: "short password", mutate: func(na *NewAccount) { na.Password = "aB1" }, wantTags: map[string]string{"password": pwdMinLenTag}},
		{name: "password with space", mutate: func(na *NewAccount) { na.Password = "abc def12" }, wantTags: map[string]string{"password": pwdNoSpaceTag}},
		{name: "numeric password", mutate: func(na *NewAccount) { na.Password = "123456789" }, wantTags: map[string]string{"password": pwdNotAllNumTag}},
		{
			name: "password similar to email",
			mutate: func(na *NewAccount) {
				na.Email = "johnsmith@test.cd"
				na.Password = "JohnSmith1"
			},
			wantTags: map[string]string{"password": pwdAttrSimTag},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acct := valid
			tt.mutate(&acct)
			err := acct.Validate(validate)
			assert.Equal(t, tt.wantTags, fieldTags(t, err))
		})
	}

	t.Run("cleans fields", func(t *testing.T) {
		acct := valid
		require.NoError(t, acct.Validate(validate))
		assert.Equal(t, "Amani Kabila", acct.FullName)
		assert.Equal(t, "amani@test.cd", acct.Email)
	})
}

func TestCredentials_Validate(t *testing.T) {
	validate := newValidator()

	tests := []struct {
		name     string
		creds    Credentials
		wantTags map[string]string
	}{
		{name: "valid", creds: Credentials{Email: "a@b.com", Password: "pw"}},
		{name: "empty", creds: Credentials{}, wantTags: map[string]string{"email": "required", "password": "required"}},
		{name: "bad email", creds: Credentials{Email: "a@", Password: "pw"}, wantTags: map[string]string{"email": "email"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.creds.Validate(validate)
			assert.Equal(t, tt.wantTags, fieldTags(t, err))
		})
	}
}
