package shared

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPayload struct {
	Title      string `json:"title"      validate:"required"`
	Importance int    `json:"importance" validate:"min=1,max=3"`
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantErr     error
		errContains string
	}{
		{name: "valid json", body: `{"title": "Send report", "importance": 2}`},
		{name: "unknown fields ignored", body: `{"title": "Send report", "importance": 2, "msgs": []}`},
		{name: "invalid json", body: `{"title": "x",}`, errContains: "invalid character"},
		{name: "empty body", body: "", wantErr: ErrEmptyBody},
		{name: "trailing data", body: `{"title": "a"} {"title": "b"}`, errContains: "unexpected data"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/test", bytes.NewBufferString(tc.body))
			var payload testPayload

			err := DecodeJSON(httptest.NewRecorder(), req, &payload)

			switch {
			case tc.wantErr != nil:
				assert.ErrorIs(t, err, tc.wantErr)
			case tc.errContains != "":
				assert.ErrorContains(t, err, tc.errContains)
			default:
				require.NoError(t, err)
				assert.Equal(t, "Send report", payload.Title)
				assert.Equal(t, 2, payload.Importance)
			}
		})
	}
}

func TestDecodeJSON_TooLarge(t *testing.T) {
	body := `{"title": "` + strings.Repeat("a", MaxRequestBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
	var payload testPayload

	err := DecodeJSON(httptest.NewRecorder(), req, &payload)

	var maxErr *http.MaxBytesError
	assert.True(t, errors.As(err, &maxErr))
}

type selfValidating struct{ ok bool }

func (s selfValidating) Validate() error {
	if !s.ok {
		return errors.New("custom validation failed")
	}
	return nil
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest(&testPayload{Title: "Ship", Importance: 1}))

	err := ValidateRequest(&testPayload{Importance: 4})
	var validationErrs validator.ValidationErrors
	require.True(t, errors.As(err, &validationErrs))
	assert.Len(t, validationErrs, 2)

	assert.NoError(t, ValidateRequest(selfValidating{ok: true}))
	assert.EqualError(t, ValidateRequest(selfValidating{}), "custom validation failed")
}
