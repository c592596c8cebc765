package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/registre-pyro/registre-api/internal/application/admin"
	"github.com/registre-pyro/registre-api/internal/application/auth"
	"github.com/registre-pyro/registre-api/internal/application/backup"
	"github.com/registre-pyro/registre-api/internal/application/dto"
	"github.com/registre-pyro/registre-api/internal/application/purge"
	"github.com/registre-pyro/registre-api/internal/application/sales"
	"github.com/registre-pyro/registre-api/internal/domain/entity"
	"github.com/registre-pyro/registre-api/internal/infrastructure/memory"
	apphttp "github.com/registre-pyro/registre-api/internal/interfaces/http"
	pkgjwt "github.com/registre-pyro/registre-api/pkg/jwt"
)

// ──────────────────────────────────────────────────────────────────────────────
// Doublures
// ──────────────────────────────────────────────────────────────────────────────

type fakePDF struct{}

func (fakePDF) GenerateRegisterPDF(context.Context, *sales.Register) ([]byte, error) {
	return []byte("%PDF-1.3 test"), nil
}

type fakeFacade struct {
	backups     []backup.Artifact
	restoreName string
	purgeActor  string
}

func (f *fakeFacade) CreateAutomaticBackup(context.Context) backup.Report {
	return backup.Report{Success: true, Filename: "auto-backup-2026-10-16T10-00-00-000Z.sql"}
}
func (f *fakeFacade) GetBackupStats() backup.Stats { return backup.Stats{Count: len(f.backups)} }
func (f *fakeFacade) ListBackups() ([]backup.Artifact, error) {
	return f.backups, nil
}
func (f *fakeFacade) RestoreBackupByName(_ context.Context, name string) admin.RestoreReport {
	f.restoreName = name
	if !backup.IsArtifactName(name) {
		return admin.RestoreReport{Filename: name, Error: "nom de sauvegarde invalide"}
	}
	return admin.RestoreReport{Success: true, Filename: name, RestoredAt: time.Now()}
}
func (f *fakeFacade) ExportJSON(_ context.Context, w io.Writer) error {
	_, err := io.WriteString(w, `{"counts":{"sales":0}}`)
	return err
}
func (f *fakeFacade) ExecutePurgeManually(_ context.Context, actor string) purge.Report {
	f.purgeActor = actor
	return purge.Report{Success: true, DeletedCount: 2}
}
func (f *fakeFacade) GetPurgeStats(context.Context) purge.Stats {
	return purge.Stats{TotalSales: 3, OldSales: 2, PurgeEligible: true}
}
func (f *fakeFacade) SchedulerStatus() admin.SchedulerStatus {
	return admin.SchedulerStatus{Running: true, TimeZone: "Europe/Paris"}
}

type testEnv struct {
	app    *fiber.App
	facade *fakeFacade
	storeA *entity.Store
	storeB *entity.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	users := memory.NewUserRepo()
	stores := memory.NewStoreRepo()
	saleRepo := memory.NewSaleRepo()
	a := &entity.Store{Name: "Magasin A"}
	b := &entity.Store{Name: "Magasin B"}
	require.NoError(t, stores.Create(ctx, a))
	require.NoError(t, stores.Create(ctx, b))

	authUC := auth.NewAuthUseCase(users, stores, auth.JWTConfig{Secret: testJWTSecret, ExpMinutes: 60, Issuer: testIssuer})
	_, err := authUC.RegisterUser(ctx, dto.CreateUserRequest{
		StoreID: a.ID, Email: "gerant@registre.fr", Password: "motdepasse", Name: "Anne", Role: entity.RoleGerant,
	})
	require.NoError(t, err)

	facade := &fakeFacade{backups: []backup.Artifact{{Name: "auto-backup-2026-10-16T10-00-00-000Z.sql", SizeBytes: 42}}}
	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{
		AuthUC:    authUC,
		SaleUC:    sales.NewUseCase(memory.TxRunner{Sales: saleRepo}, saleRepo, stores, time.UTC, nil),
		PDF:       fakePDF{},
		Admin:     facade,
		JWTSecret: testJWTSecret,
		Location:  time.UTC,
		Gatherer:  prometheus.NewRegistry(),
	})
	return &testEnv{app: app, facade: facade, storeA: a, storeB: b}
}

func (e *testEnv) token(t *testing.T, role, storeID string) string {
	t.Helper()
	tok, err := pkgjwt.Generate(testJWTSecret, testUserID, storeID, role, testIssuer, testExpMin)
	require.NoError(t, err)
	return "Bearer " + tok
}

func (e *testEnv) do(t *testing.T, method, path, authHeader string, body interface{}) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func saleBody() map[string]interface{} {
	return map[string]interface{}{
		"customer_last_name":  "Martin",
		"customer_first_name": "Claire",
		"customer_birth_date": "1990-05-12",
		"id_type":             "cni",
		"id_number":           "X1234567",
		"payment_method":      "carte",
		"amount":              "49.90",
		"lines": []map[string]interface{}{
			{"product_type": "Fontaine", "category_code": "F2", "quantity": 2},
		},
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Public
// ──────────────────────────────────────────────────────────────────────────────

func TestRouter_HealthEtMetrics(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/health", "", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/metrics", "", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_Login(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "gerant@registre.fr", "password": "motdepasse"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out dto.LoginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.NotEmpty(t, out.Token)
	assert.Equal(t, env.storeA.ID, out.User.StoreID)

	resp = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "gerant@registre.fr", "password": "faux"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "pas-un-email"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// ──────────────────────────────────────────────────────────────────────────────
// Ventes et exports
// ──────────────────────────────────────────────────────────────────────────────

func TestRouter_VendeurEnregistreEtConsulte(t *testing.T) {
	env := newTestEnv(t)
	vendeur := env.token(t, entity.RoleVendeur, env.storeA.ID)

	resp := env.do(t, http.MethodPost, "/api/sales", vendeur, saleBody())
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created dto.SaleResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, env.storeA.ID, created.StoreID)

	resp = env.do(t, http.MethodGet, "/api/sales", vendeur, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list dto.SaleListResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Equal(t, 1, list.Count)

	resp = env.do(t, http.MethodDelete, "/api/sales/"+created.ID, vendeur, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, http.MethodDelete, "/api/sales/"+created.ID, env.token(t, entity.RoleGerant, env.storeA.ID), nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestRouter_PhotosDeLaVente(t *testing.T) {
	env := newTestEnv(t)
	vendeurA := env.token(t, entity.RoleVendeur, env.storeA.ID)
	jpeg := []byte{0xff, 0xd8, 0xff, 0xe0}
	body := saleBody()
	body["photos"] = []map[string]interface{}{{"kind": "id_front", "mime_type": "image/jpeg", "data": jpeg}}

	resp := env.do(t, http.MethodPost, "/api/sales", vendeurA, body)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created dto.SaleResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	resp = env.do(t, http.MethodGet, "/api/sales/"+created.ID, vendeurA, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var detail dto.SaleResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&detail))
	require.Len(t, detail.Photos, 1)
	assert.Equal(t, dto.SalePhotoResponse{Kind: "id_front", MimeType: "image/jpeg", Size: len(jpeg)}, detail.Photos[0])

	resp = env.do(t, http.MethodGet, "/api/sales/"+created.ID+"/photos/id_front", vendeurA, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/jpeg", resp.Header.Get("Content-Type"))
	got, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, jpeg, got)

	resp = env.do(t, http.MethodGet, "/api/sales/"+created.ID+"/photos/id_front", env.token(t, entity.RoleVendeur, env.storeB.ID), nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "photo d'un autre magasin")

	resp = env.do(t, http.MethodGet, "/api/sales/"+created.ID+"/photos/id_back", vendeurA, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/sales/"+created.ID+"/photos/selfie", vendeurA, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/sales/"+created.ID+"/photos/id_front", "", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRouter_VenteInvalide(t *testing.T) {
	env := newTestEnv(t)
	body := saleBody()
	body["lines"] = []map[string]interface{}{{"product_type": "Fusée", "category_code": "Z9", "quantity": 1}}

	resp := env.do(t, http.MethodPost, "/api/sales", env.token(t, entity.RoleVendeur, env.storeA.ID), body)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/sales/inconnue", env.token(t, entity.RoleVendeur, env.storeA.ID), nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_Exports(t *testing.T) {
	env := newTestEnv(t)
	gerant := env.token(t, entity.RoleGerant, env.storeA.ID)
	resp := env.do(t, http.MethodPost, "/api/sales", gerant, saleBody())
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/exports/sales.csv", gerant, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "registre-magasin-a")
	raw, _ := io.ReadAll(resp.Body)
	assert.True(t, strings.HasPrefix(string(raw), "Date;Heure;"))
	assert.Contains(t, string(raw), "Martin;Claire")

	resp = env.do(t, http.MethodGet, "/api/exports/sales.pdf", gerant, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))

	resp = env.do(t, http.MethodGet, "/api/exports/sales.csv", env.token(t, entity.RoleVendeur, env.storeA.ID), nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

// ──────────────────────────────────────────────────────────────────────────────
// Administration
// ──────────────────────────────────────────────────────────────────────────────

func TestRouter_AdminReserveAuxAdmins(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/admin/backups", env.token(t, entity.RoleGerant, env.storeA.ID), nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/admin/backups", "", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRouter_AdminSauvegardes(t *testing.T) {
	env := newTestEnv(t)
	adminTok := env.token(t, entity.RoleAdmin, "")

	resp := env.do(t, http.MethodGet, "/api/admin/backups", adminTok, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []backup.Artifact
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Len(t, list, 1)

	resp = env.do(t, http.MethodPost, "/api/admin/backups", adminTok, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/admin/backups/export.json", adminTok, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "registre-export-")
}

func TestRouter_AdminRestauration(t *testing.T) {
	env := newTestEnv(t)
	adminTok := env.token(t, entity.RoleAdmin, "")

	resp := env.do(t, http.MethodPost, "/api/admin/backups/restore", adminTok, dto.RestoreRequest{Filename: "../../etc/passwd"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	var report admin.RestoreReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	assert.False(t, report.Success)
	assert.NotEmpty(t, report.Error)

	resp = env.do(t, http.MethodPost, "/api/admin/backups/restore", adminTok, dto.RestoreRequest{Filename: "auto-backup-2026-10-16T10-00-00-000Z.sql"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "auto-backup-2026-10-16T10-00-00-000Z.sql", env.facade.restoreName)

	resp = env.do(t, http.MethodPost, "/api/admin/backups/restore", adminTok, map[string]string{})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouter_AdminPurgeEtPlanificateur(t *testing.T) {
	env := newTestEnv(t)
	adminTok := env.token(t, entity.RoleAdmin, "")

	resp := env.do(t, http.MethodPost, "/api/admin/purge", adminTok, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, testUserID, env.facade.purgeActor)

	resp = env.do(t, http.MethodGet, "/api/admin/purge/stats", adminTok, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats purge.Stats
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, int64(2), stats.OldSales)

	resp = env.do(t, http.MethodGet, "/api/admin/scheduler", adminTok, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
