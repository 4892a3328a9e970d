package main

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	appidentity "github.com/backoffice/prdesk/internal/application/identity"
	apppricing "github.com/backoffice/prdesk/internal/application/pricing"
	"github.com/backoffice/prdesk/internal/infrastructure/auth"
	"github.com/backoffice/prdesk/internal/infrastructure/config"
	"github.com/backoffice/prdesk/internal/infrastructure/persistence"
	"github.com/backoffice/prdesk/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// cli points the command at a fresh in-memory server and a temp token file
type cli struct {
	t          *testing.T
	configPath string
	tokenPath  string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := persistence.NewDatabase(&config.DatabaseConfig{Driver: "sqlite", Path: ":memory:", LogLevel: "silent"}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })

	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                "cli-test-secret-0123456789abcdef",
		AccessTokenExpiration: time.Hour,
		Issuer:                "prdesk-test",
	})
	blacklist := auth.NewInMemoryTokenBlacklist()
	srv := httptest.NewServer(router.New(router.Dependencies{
		HTTP:      config.HTTPConfig{MaxBodySize: 1 << 20},
		JWT:       jwtService,
		Blacklist: blacklist,
		Auth:      appidentity.NewAuthService(persistence.NewGormUserRepository(db.DB), jwtService, blacklist, nil),
		Workflow:  apppricing.NewWorkflowService(persistence.NewGormPricingRequestRepository(db.DB), nil, nil),
		Health:    db,
		Version:   "test",
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	c := &cli{t: t, configPath: filepath.Join(dir, "config.toml"), tokenPath: filepath.Join(dir, "token.json")}
	body := "[client]\nbase_url = \"" + srv.URL + "\"\ntoken_file = \"" + c.tokenPath + "\"\ntimeout = \"5s\"\n"
	require.NoError(t, os.WriteFile(c.configPath, []byte(body), 0o600))
	return c
}

func (c *cli) run(args ...string) (int, string, string) {
	c.t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(append([]string{"-config", c.configPath}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

// must runs a command that has to succeed
func (c *cli) must(args ...string) string {
	c.t.Helper()
	code, out, errOut := c.run(args...)
	require.Equal(c.t, 0, code, "prdesk %v: %s", args, errOut)
	return out
}

func (c *cli) jsonRequest(args ...string) map[string]any {
	c.t.Helper()
	var out map[string]any
	require.NoError(c.t, json.Unmarshal([]byte(c.must(append([]string{"-o", "json"}, args...)...)), &out))
	return out
}

func TestCLI_SubmitAssignReject(t *testing.T) {
	c := newCLI(t)

	out := c.must("register", "-username", "sam", "-email", "sam@prdesk.test", "-password", "secret-pass", "-role", "SE")
	assert.Contains(t, out, "Sales Executive")

	pr := c.jsonRequest("sales", "submit", "-fake")
	id, _ := pr["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "Under Review", pr["sales_status"])

	out = c.must("sales", "list")
	assert.Contains(t, out, id)
	assert.Contains(t, out, "Under Review")

	c.must("logout")
	_, err := os.Stat(c.tokenPath)
	assert.True(t, os.IsNotExist(err))

	c.must("register", "-username", "pat", "-email", "pat@prdesk.test", "-password", "secret-pass", "-role", "PA")
	assert.Contains(t, c.must("pa", "available"), id)

	pr = c.jsonRequest("pa", "assign", id)
	assert.Equal(t, "Active Status", pr["analyst_status"])

	code, _, errOut := c.run("pa", "reject", id)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "comment")

	pr = c.jsonRequest("pa", "reject", id, "-comment", "Rate too low")
	assert.Equal(t, "Closed", pr["sales_status"])
	assert.Equal(t, "Rejected", pr["final_approval_status"])

	out = c.must("pa", "get", id)
	assert.Contains(t, out, "Rate too low")
	assert.Contains(t, out, "Outcome:")
	assert.Contains(t, out, "You can: none")
}

func TestCLI_Stats(t *testing.T) {
	c := newCLI(t)
	counts := func(args ...string) map[string]int {
		var out map[string]int
		require.NoError(t, json.Unmarshal([]byte(c.must(append([]string{"-o", "json"}, args...)...)), &out))
		return out
	}

	c.must("register", "-username", "sam", "-email", "sam@prdesk.test", "-password", "secret-pass", "-role", "SE")
	c.must("sales", "draft", "-fake")
	first := c.jsonRequest("sales", "submit", "-fake")["id"].(string)
	c.must("sales", "submit", "-fake")

	assert.Equal(t, map[string]int{
		"total": 3, "drafts": 1, "under_review": 2, "action_required": 0, "approved": 0, "rejected": 0,
	}, counts("sales", "stats"))
	out := c.must("sales", "stats")
	assert.Contains(t, out, "Total:")
	assert.Contains(t, out, "Under Review:")

	c.must("register", "-username", "pat", "-email", "pat@prdesk.test", "-password", "secret-pass", "-role", "PA")
	c.must("pa", "assign", first)
	c.must("pa", "approve", first)
	assert.Equal(t, map[string]int{
		"available": 1, "assigned": 1, "active": 0, "action_required": 0, "closed": 1,
	}, counts("pa", "stats"))

	code, _, errOut := c.run("sales", "stats")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "cannot view sales statistics")
}

func TestCLI_DraftFromFile(t *testing.T) {
	c := newCLI(t)
	c.must("register", "-username", "sam", "-email", "sam@prdesk.test", "-password", "secret-pass", "-role", "SE")

	file := filepath.Join(t.TempDir(), "draft.json")
	require.NoError(t, os.WriteFile(file, []byte(`{
		"shipment_date": "2024-03-15",
		"account_info": "ACME-001",
		"origin_address": "1 Dock Rd", "origin_state": "TX", "origin_zip": "75001",
		"dest_address": "9 Port Ave", "dest_state": "CA", "dest_zip": "90001",
		"items": [{"item_name": "Steel coils", "commodity_class": "70", "total_weight": 500,
			"no_of_pieces": 10, "container_type": "Pallet", "no_of_pallets": 2}]
	}`), 0o600))

	pr := c.jsonRequest("sales", "draft", "-file", file)
	id := pr["id"].(string)
	assert.Equal(t, "Draft", pr["sales_status"])
	assert.Equal(t, "USA", pr["origin_country"])

	out := c.must("sales", "get", id)
	assert.Contains(t, out, "Steel coils")
	assert.Contains(t, out, "You can: Edit, Submit, Delete")

	code, out, _ := c.run("-o", "yaml", "sales", "send", id)
	require.Equal(t, 0, code)
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "Under Review", doc["sales_status"])

	code, _, errOut := c.run("sales", "delete", id)
	assert.Equal(t, 1, code)
	assert.NotEmpty(t, errOut)
}

func TestCLI_LoginWhoamiLogout(t *testing.T) {
	c := newCLI(t)
	c.must("register", "-username", "pat", "-email", "pat@prdesk.test", "-password", "secret-pass", "-role", "PA")
	c.must("logout")

	code, _, errOut := c.run("whoami")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "prdesk login")

	code, _, _ = c.run("login", "-email", "pat@prdesk.test", "-password", "wrong-pass")
	assert.Equal(t, 1, code)

	t.Setenv("PRDESK_PASSWORD", "secret-pass")
	c.must("login", "-email", "pat@prdesk.test")

	var user map[string]any
	require.NoError(t, json.Unmarshal([]byte(c.must("-o", "json", "whoami")), &user))
	assert.Equal(t, "PA", user["role"])
	assert.Equal(t, "pat@prdesk.test", user["email"])

	code, _, errOut = c.run("sales", "list")
	assert.Equal(t, 1, code)
	assert.NotEmpty(t, errOut)
}

func TestCLI_Usage(t *testing.T) {
	c := newCLI(t)

	code, _, errOut := c.run()
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "Usage: prdesk")

	code, _, _ = c.run("frobnicate")
	assert.Equal(t, 2, code)

	code, _, errOut = c.run("-o", "xml", "whoami")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "xml")

	code, _, _ = c.run("register", "-role", "boss")
	assert.Equal(t, 2, code)
}

func TestActionLabel(t *testing.T) {
	assert.Equal(t, "Action Required", actionLabel("action_required"))
	assert.Equal(t, "Submit", actionLabel("submit"))
}
