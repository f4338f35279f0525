package handlers

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockvel-tracker/internal/core/domain"
	"stockvel-tracker/internal/core/services"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func previewApp() *fiber.App {
	app := fiber.New()
	h := NewLoanHandler(services.NewLoanService(nil, nil, nil))
	app.Post("/loans/preview", h.Preview)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path, body string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var env envelope
	require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	return resp.StatusCode, env
}

func TestLoanHandler_Preview(t *testing.T) {
	app := previewApp()

	status, env := postJSON(t, app, "/loans/preview", `{"principal":5000,"term_months":12}`)
	require.Equal(t, fiber.StatusOK, status, env.Error)
	assert.True(t, env.Success)

	var preview struct {
		Terms struct {
			InterestRate       string `json:"interest_rate"`
			TotalRepayment     string `json:"total_repayment"`
			MonthlyInstallment string `json:"monthly_installment"`
		} `json:"terms"`
		Schedule []json.RawMessage `json:"schedule"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &preview))
	assert.Equal(t, "8", preview.Terms.InterestRate)
	assert.Equal(t, "5400", preview.Terms.TotalRepayment)
	assert.Equal(t, "450", preview.Terms.MonthlyInstallment)
	assert.Len(t, preview.Schedule, 12)
}

func TestLoanHandler_PreviewRejectsBadInput(t *testing.T) {
	app := previewApp()

	tests := []struct {
		name string
		body string
	}{
		{"term not offered", `{"principal":5000,"term_months":7}`},
		{"zero principal", `{"principal":0,"term_months":12}`},
		{"negative principal", `{"principal":-100,"term_months":12}`},
		{"malformed body", `{"principal":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := postJSON(t, app, "/loans/preview", tt.body)
			assert.Equal(t, fiber.StatusBadRequest, status)
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Error)
		})
	}
}

func TestPaymentMethodExamplesAreAccepted(t *testing.T) {
	for _, body := range []interface{}{RepaymentRequest{}, RecordPaymentRequest{}} {
		field, ok := reflect.TypeOf(body).FieldByName("PaymentMethod")
		require.True(t, ok)
		example := field.Tag.Get("example")
		assert.True(t, domain.PaymentMethod(example).Valid(), "%T example %q", body, example)
	}
}
