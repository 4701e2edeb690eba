package fiber

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portalparaiso/featuregate/pkg/featuregate"
)

const accessBody = `{
	"success": true,
	"data": {
		"package": {"tier": "mystic", "type": "subscription"},
		"readings": {
			"tarot": {"daily_limit": 3, "used_today": 0, "remaining": 3, "unlimited": false},
			"chat": {"daily_limit": 5, "used_today": 5, "remaining": 0, "unlimited": false},
			"astrology": {"daily_limit": 0, "used_today": 0, "remaining": 0, "unlimited": false}
		}
	}
}`

func setupTestService(t *testing.T) *featuregate.Service {
	t.Helper()

	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(accessBody))
	}))
	t.Cleanup(api.Close)

	svc, err := featuregate.NewService(featuregate.Config{
		BaseURL: api.URL,
		Tokens:  featuregate.StaticToken("test-token"),
	})
	require.NoError(t, err)
	return svc
}

func setupApp(svc *featuregate.Service) *fiber.App {
	app := fiber.New()
	app.Get("/readings/:feature", Middleware(Config{
		Service:    svc,
		GetFeature: FromParam("feature"),
	}), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func TestMiddleware_Allowed(t *testing.T) {
	app := setupApp(setupTestService(t))

	res, err := app.Test(httptest.NewRequest(http.MethodGet, "/readings/tarot", nil))
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestMiddleware_Denied(t *testing.T) {
	app := setupApp(setupTestService(t))

	res, err := app.Test(httptest.NewRequest(http.MethodGet, "/readings/astrology", nil))
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusPaymentRequired, res.StatusCode)
}

func TestMiddleware_LimitReached(t *testing.T) {
	app := setupApp(setupTestService(t))

	res, err := app.Test(httptest.NewRequest(http.MethodGet, "/readings/chat", nil))
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, res.StatusCode)
}

func TestMiddleware_UnknownFeatureFailsClosed(t *testing.T) {
	app := setupApp(setupTestService(t))

	res, err := app.Test(httptest.NewRequest(http.MethodGet, "/readings/numerology", nil))
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusPaymentRequired, res.StatusCode)
}
