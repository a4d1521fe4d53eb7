package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	authdomain "github.com/outlinehq/outliner/internal/auth/domain"
	authrepository "github.com/outlinehq/outliner/internal/auth/repository"
	authservice "github.com/outlinehq/outliner/internal/auth/service"
	"github.com/outlinehq/outliner/internal/auth/session"
	"github.com/outlinehq/outliner/internal/config"
	orgdomain "github.com/outlinehq/outliner/internal/organization/domain"
	orgrepository "github.com/outlinehq/outliner/internal/organization/repository"
	orgservice "github.com/outlinehq/outliner/internal/organization/service"
	outlinedomain "github.com/outlinehq/outliner/internal/outline/domain"
	outlinerepository "github.com/outlinehq/outliner/internal/outline/repository"
	outlineservice "github.com/outlinehq/outliner/internal/outline/service"
	"github.com/outlinehq/outliner/internal/providers/email"
	"github.com/outlinehq/outliner/pkg/db"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dbConn, err := db.NewTest()
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(
		&authdomain.User{},
		&authdomain.Session{},
		&authdomain.Verification{},
		&orgdomain.Organization{},
		&orgdomain.OrganizationMember{},
		&orgdomain.Invitation{},
		&outlinedomain.Outline{},
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	users, sessionRepo, verificationRepo := authrepository.New(dbConn)
	sender, err := email.NewSender(&email.NoOpProvider{}, "http://localhost:3000")
	if err != nil {
		t.Fatalf("failed to build sender: %v", err)
	}

	authsvc := authservice.New(zap.NewNop(), users, sessionRepo, verificationRepo, sender, node)
	orgRepo := orgrepository.NewRepository(dbConn)
	orgsvc := orgservice.NewService(dbConn, orgRepo, users, sender, node, zap.NewNop())
	outlinesvc := outlineservice.NewService(outlinerepository.NewRepository(dbConn), orgRepo, node)

	cfg := config.Config{}
	return NewServer(ServerParams{
		Gin:             NewEngine(nil),
		Cfg:             cfg,
		Authsvc:         authsvc,
		Sessions:        session.NewManager(cfg),
		OrganizationSvc: orgsvc,
		OutlineSvc:      outlinesvc,
		GenID:           node,
		Log:             zap.NewNop(),
	})
}

func doJSON(t *testing.T, s *Server, method, path, sid string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: sid})
	}

	rec := httptest.NewRecorder()
	s.Engine().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.DefaultCookieName && c.Value != "" {
			return c.Value
		}
	}
	t.Fatalf("no session cookie in response")
	return ""
}

func signUp(t *testing.T, s *Server, name, address string) string {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/api/auth/sign-up", "", gin.H{
		"name":     name,
		"email":    address,
		"password": "correct-password",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("sign-up failed with %d: %s", rec.Code, rec.Body.String())
	}
	return sessionCookie(t, rec)
}

func createOrg(t *testing.T, s *Server, sid, name string) string {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/api/organizations", sid, gin.H{"name": name})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create org failed with %d: %s", rec.Code, rec.Body.String())
	}
	return decodeBody(t, rec)["id"].(string)
}

func TestSignUpSignInSignOut(t *testing.T) {
	s := newTestServer(t)

	sid := signUp(t, s, "Alice", "alice@example.com")

	rec := doJSON(t, s, http.MethodGet, "/api/auth/session", sid, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("session failed with %d: %s", rec.Code, rec.Body.String())
	}
	user := decodeBody(t, rec)["user"].(map[string]any)
	if user["email"] != "alice@example.com" {
		t.Fatalf("unexpected session user: %v", user)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/auth/sign-out", sid, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("sign-out failed with %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/auth/session", sid, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after sign-out, got %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/auth/sign-in", "", gin.H{
		"email":    "alice@example.com",
		"password": "correct-password",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("sign-in failed with %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRequiresAuthentication(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/organizations", "/api/outlines?orgId=1"} {
		rec := doJSON(t, s, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 for %s, got %d", path, rec.Code)
		}
	}
}

func TestInviteAndJoinFlow(t *testing.T) {
	s := newTestServer(t)

	ownerSid := signUp(t, s, "Owner", "owner@example.com")
	orgID := createOrg(t, s, ownerSid, "Acme")

	rec := doJSON(t, s, http.MethodPost, "/api/organizations/members?orgId="+orgID, ownerSid, gin.H{
		"email": "newcomer@example.com",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("invite failed with %d: %s", rec.Code, rec.Body.String())
	}
	invited := decodeBody(t, rec)
	invitationID := invited["invitationId"].(string)
	if invited["outcome"] != string(orgdomain.OutcomeInvited) {
		t.Fatalf("unexpected outcome: %v", invited["outcome"])
	}

	// The invite details page is public.
	rec = doJSON(t, s, http.MethodGet, "/api/organizations/invite/"+invitationID, "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("invite details failed with %d: %s", rec.Code, rec.Body.String())
	}
	details := decodeBody(t, rec)
	if details["organizationName"] != "Acme" {
		t.Fatalf("unexpected invite details: %v", details)
	}

	newcomerSid := signUp(t, s, "Newcomer", "newcomer@example.com")
	rec = doJSON(t, s, http.MethodPost, "/api/organizations/join", newcomerSid, gin.H{
		"invitationId": invitationID,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("join failed with %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodGet, "/api/organizations/members?orgId="+orgID, ownerSid, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("members failed with %d: %s", rec.Code, rec.Body.String())
	}
	var members []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &members); err != nil {
		t.Fatalf("failed to decode members: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}
}

func TestJoinWithWrongAccount(t *testing.T) {
	s := newTestServer(t)

	ownerSid := signUp(t, s, "Owner", "owner@example.com")
	orgID := createOrg(t, s, ownerSid, "Acme")

	rec := doJSON(t, s, http.MethodPost, "/api/organizations/members?orgId="+orgID, ownerSid, gin.H{
		"email": "intended@example.com",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("invite failed with %d: %s", rec.Code, rec.Body.String())
	}
	invitationID := decodeBody(t, rec)["invitationId"].(string)

	otherSid := signUp(t, s, "Other", "other@example.com")
	rec = doJSON(t, s, http.MethodPost, "/api/organizations/join", otherSid, gin.H{
		"invitationId": invitationID,
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
	if decodeBody(t, rec)["error"].(map[string]any)["type"] != "email_mismatch" {
		t.Fatalf("expected email_mismatch error: %s", rec.Body.String())
	}
}

func TestRemoveMemberRules(t *testing.T) {
	s := newTestServer(t)

	ownerSid := signUp(t, s, "Owner", "owner@example.com")
	memberSid := signUp(t, s, "Member", "member@example.com")
	orgID := createOrg(t, s, ownerSid, "Acme")

	// Existing account joins directly.
	rec := doJSON(t, s, http.MethodPost, "/api/organizations/members?orgId="+orgID, ownerSid, gin.H{
		"email": "member@example.com",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("invite failed with %d: %s", rec.Code, rec.Body.String())
	}
	memberID := decodeBody(t, rec)["memberId"].(string)

	rec = doJSON(t, s, http.MethodGet, "/api/organizations/me?orgId="+orgID, ownerSid, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me failed with %d: %s", rec.Code, rec.Body.String())
	}
	ownerMemberID := decodeBody(t, rec)["id"].(string)

	// Members cannot remove anyone.
	rec = doJSON(t, s, http.MethodDelete, fmt.Sprintf("/api/organizations/members/%s?orgId=%s", memberID, orgID), memberSid, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	// The owner cannot be removed.
	rec = doJSON(t, s, http.MethodDelete, fmt.Sprintf("/api/organizations/members/%s?orgId=%s", ownerMemberID, orgID), ownerSid, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodDelete, fmt.Sprintf("/api/organizations/members/%s?orgId=%s", memberID, orgID), ownerSid, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("remove failed with %d: %s", rec.Code, rec.Body.String())
	}
}

func TestOutlineCRUD(t *testing.T) {
	s := newTestServer(t)

	sid := signUp(t, s, "Owner", "owner@example.com")
	orgID := createOrg(t, s, sid, "Acme")

	rec := doJSON(t, s, http.MethodPost, "/api/outlines", sid, gin.H{
		"organizationId": orgID,
		"header":         "Q3 report",
		"sectionType":    "analysis",
		"status":         "draft",
		"reviewer":       "Owner",
		"target":         100,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create outline failed with %d: %s", rec.Code, rec.Body.String())
	}
	outlineID := decodeBody(t, rec)["id"].(string)

	rec = doJSON(t, s, http.MethodPut, "/api/outlines/"+outlineID, sid, gin.H{
		"status": "review",
		"limit":  50,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update outline failed with %d: %s", rec.Code, rec.Body.String())
	}
	updated := decodeBody(t, rec)
	if updated["status"] != "review" {
		t.Fatalf("expected status review, got %v", updated["status"])
	}
	if updated["header"] != "Q3 report" {
		t.Fatalf("partial update must keep header, got %v", updated["header"])
	}

	rec = doJSON(t, s, http.MethodGet, "/api/outlines?orgId="+orgID, sid, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list outlines failed with %d", rec.Code)
	}
	var outlines []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &outlines); err != nil {
		t.Fatalf("failed to decode outlines: %v", err)
	}
	if len(outlines) != 1 {
		t.Fatalf("expected 1 outline, got %d", len(outlines))
	}

	// Non-members see nothing.
	otherSid := signUp(t, s, "Other", "other@example.com")
	rec = doJSON(t, s, http.MethodGet, "/api/outlines/"+outlineID, otherSid, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-member, got %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodDelete, "/api/outlines/"+outlineID, sid, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete outline failed with %d", rec.Code)
	}
	rec = doJSON(t, s, http.MethodGet, "/api/outlines/"+outlineID, sid, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}
