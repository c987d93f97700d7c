package apiv1

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/ManuelReschke/FormFox/app/controllers"
	"github.com/ManuelReschke/FormFox/app/models"
	"github.com/ManuelReschke/FormFox/app/repository"
	"github.com/ManuelReschke/FormFox/internal/pkg/database"
	"github.com/ManuelReschke/FormFox/internal/pkg/middleware"
	"github.com/ManuelReschke/FormFox/internal/pkg/pager"
	"github.com/ManuelReschke/FormFox/internal/pkg/quota"
)

const openAPIFile = "../../../public/docs/v1/openapi.yml"

func loadOpenAPI(t *testing.T) *openapi3.T {
	t.Helper()
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(openAPIFile)
	require.NoError(t, err)
	require.NoError(t, doc.Validate(loader.Context))
	return doc
}

func TestOpenAPIDocumentIsValid(t *testing.T) {
	doc := loadOpenAPI(t)

	for _, p := range []string{"/ping", "/forms", "/forms/{id}/submissions"} {
		item := doc.Paths.Find(p)
		require.NotNil(t, item, "path %s missing", p)
		assert.NotNil(t, item.Get, "GET %s missing", p)
	}
}

type apiFixture struct {
	app    *fiber.App
	apiKey string
	formID string
}

func newAPIFixture(t *testing.T) apiFixture {
	t.Helper()
	ctx := context.Background()

	db, err := database.OpenTestDB()
	require.NoError(t, err)
	pg, err := pager.New(db)
	require.NoError(t, err)
	repos := repository.NewRepositories(db, pg)
	ledger := quota.NewLedger(db)

	user, err := models.CreateUser("Api Tester", "api@example.com", "secret123")
	require.NoError(t, err)
	require.NoError(t, repos.User.Create(ctx, user))

	settings, err := repos.User.GetSettings(ctx, user.ID)
	require.NoError(t, err)
	rawKey, err := settings.IssueAPIKey()
	require.NoError(t, err)
	require.NoError(t, repos.User.SaveSettings(ctx, settings))

	form := &models.Form{UserID: user.ID, Slug: "apiform001", Name: "Contact", IsActive: true}
	res, err := ledger.InsertFormIfAllowed(ctx, user.ID, form)
	require.NoError(t, err)
	require.True(t, res.OK)

	for _, email := range []string{"a@example.com", "b@example.com"} {
		sub := &models.Submission{FormID: form.ID, Payload: datatypes.JSONMap{"email": email}}
		res, err := ledger.InsertSubmissionIfAllowed(ctx, user.ID, sub)
		require.NoError(t, err)
		require.True(t, res.OK)
	}

	deps := &controllers.Deps{Repos: repos, Ledger: ledger}
	app := fiber.New()
	v1 := app.Group("/api/v1", middleware.APIKeyAuthMiddleware(repos.User))
	RegisterHandlers(v1, NewAPIServer(deps))

	return apiFixture{app: app, apiKey: rawKey, formID: form.ID}
}

func newOpenAPIRouter(t *testing.T) routers.Router {
	t.Helper()
	doc := loadOpenAPI(t)
	doc.Servers = openapi3.Servers{{URL: "http://formfox.test/api/v1"}}
	router, err := gorillamux.NewRouter(doc)
	require.NoError(t, err)
	return router
}

// TestResponsesMatchOpenAPI calls every documented operation and validates
// request and response against the document.
func TestResponsesMatchOpenAPI(t *testing.T) {
	fx := newAPIFixture(t)
	router := newOpenAPIRouter(t)

	cases := []struct {
		name   string
		path   string
		status int
	}{
		{"ping", "/api/v1/ping", http.StatusOK},
		{"forms", "/api/v1/forms", http.StatusOK},
		{"submissions", "/api/v1/forms/" + fx.formID + "/submissions", http.StatusOK},
		{"submissions first page of one", "/api/v1/forms/" + fx.formID + "/submissions?limit=1", http.StatusOK},
		{"malformed cursor", "/api/v1/forms/" + fx.formID + "/submissions?cursor=bad__", http.StatusOK},
		{"unknown form", "/api/v1/forms/00000000-0000-0000-0000-000000000000/submissions", http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			req.Header.Set("X-API-Key", fx.apiKey)
			resp, err := fx.app.Test(req, -1)
			require.NoError(t, err)
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode, string(body))

			specReq, err := http.NewRequest(http.MethodGet, "http://formfox.test"+tc.path, nil)
			require.NoError(t, err)
			specReq.Header.Set("X-API-Key", fx.apiKey)
			route, pathParams, err := router.FindRoute(specReq)
			require.NoError(t, err)

			reqInput := &openapi3filter.RequestValidationInput{
				Request:    specReq,
				PathParams: pathParams,
				Route:      route,
				Options:    &openapi3filter.Options{AuthenticationFunc: openapi3filter.NoopAuthenticationFunc},
			}
			require.NoError(t, openapi3filter.ValidateRequest(context.Background(), reqInput))

			respInput := &openapi3filter.ResponseValidationInput{
				RequestValidationInput: reqInput,
				Status:                 resp.StatusCode,
				Header:                 resp.Header,
			}
			respInput.SetBodyBytes(body)
			assert.NoError(t, openapi3filter.ValidateResponse(context.Background(), respInput))
		})
	}
}

func TestAPIRequiresKey(t *testing.T) {
	fx := newAPIFixture(t)

	resp, err := fx.app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/ping", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/forms", nil)
	req.Header.Set("Authorization", "Bearer "+fx.apiKey)
	resp, err = fx.app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.True(t, bytes.Contains(body, []byte(fx.formID)))
	assert.False(t, strings.Contains(string(body), fx.apiKey))
}
