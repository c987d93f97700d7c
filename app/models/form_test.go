package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contactForm() *Form {
	return &Form{
		Name: "Contact",
		Fields: []FormField{
			{Name: "email", Type: FieldTypeEmail, Required: true},
			{Name: "message", Type: FieldTypeTextarea},
			{Name: "topic", Type: FieldTypeSelect, Options: []string{"sales", "support"}},
		},
	}
}

func TestValidateSubmissionDropsUnknownFields(t *testing.T) {
	payload, err := contactForm().ValidateSubmission(map[string]string{
		"email":   "  Jane@Example.com ",
		"message": "hello",
		"extra":   "ignored",
	})
	require.NoError(t, err)

	assert.Equal(t, "Jane@Example.com", payload["email"])
	assert.Equal(t, "hello", payload["message"])
	assert.NotContains(t, payload, "extra")
	assert.NotContains(t, payload, "topic")
}

func TestValidateSubmissionReportsFieldProblems(t *testing.T) {
	_, err := contactForm().ValidateSubmission(map[string]string{
		"email": "not-an-address",
		"topic": "billing",
	})
	require.Error(t, err)

	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, "invalid email", subErr.Fields["email"])
	assert.Equal(t, "invalid option", subErr.Fields["topic"])
}

func TestValidateSubmissionRequired(t *testing.T) {
	_, err := contactForm().ValidateSubmission(map[string]string{"message": "hi"})

	var subErr *SubmissionError
	require.ErrorAs(t, err, &subErr)
	assert.Equal(t, "required", subErr.Fields["email"])
}

func TestValidateSubmissionWithoutSchema(t *testing.T) {
	f := &Form{Name: "Open"}

	payload, err := f.ValidateSubmission(map[string]string{"email": "a@b.c", "_gotcha": "x"})
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"email": "a@b.c"}, payload)
}

func TestValidateFieldsRejectsDuplicates(t *testing.T) {
	f := contactForm()
	require.NoError(t, f.ValidateFields())

	f.Fields = append(f.Fields, FormField{Name: "email", Type: FieldTypeText})
	assert.Error(t, f.ValidateFields())
}

func TestCreateUserNormalizesEmail(t *testing.T) {
	u, err := CreateUser("jane", "  Jane@Example.COM", "secret123")
	require.NoError(t, err)

	assert.Equal(t, "jane@example.com", u.Email)
	assert.NotEqual(t, "secret123", u.Password)
	assert.True(t, u.CheckPassword("secret123"))
	assert.False(t, u.CheckPassword("wrong"))
}

func TestCreateUserRejectsShortPassword(t *testing.T) {
	_, err := CreateUser("jane", "jane@example.com", "123")
	assert.Error(t, err)
}
