package policy

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func strPtr(s string) *string { return &s }

func newUser() *Principal {
	return &Principal{ID: uuid.New(), Email: "usuario@ecoa.com", Role: RoleUser}
}

func newAdmin() *Principal {
	return &Principal{ID: uuid.New(), Email: "admin@ecoa.com", Role: RoleAdmin}
}

func TestParseEnumsNormalizeCase(t *testing.T) {
	if c, err := ParseCategory(" iluminacao "); err != nil || c != CategoryIluminacao {
		t.Fatalf("category: got %q err=%v", c, err)
	}
	if s, err := ParseStatus("in_progress"); err != nil || s != StatusInProgress {
		t.Fatalf("status: got %q err=%v", s, err)
	}
	if p, err := ParsePriority("Urgent"); err != nil || p != PriorityUrgent {
		t.Fatalf("priority: got %q err=%v", p, err)
	}
	if r, err := ParseRole("admin"); err != nil || r != RoleAdmin {
		t.Fatalf("role: got %q err=%v", r, err)
	}
}

func TestParseEnumsRejectUnknown(t *testing.T) {
	cases := []func() error{
		func() error { _, err := ParseCategory("ESGOTO"); return err },
		func() error { _, err := ParseStatus("DONE"); return err },
		func() error { _, err := ParsePriority("CRITICAL"); return err },
		func() error { _, err := ParseRole("ROOT"); return err },
		func() error { _, err := ParseCategory(""); return err },
	}
	for i, fn := range cases {
		if err := fn(); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("case %d: expected ErrInvalidArgument, got %v", i, err)
		}
	}
}

func TestListScope(t *testing.T) {
	if _, err := ListScope(nil); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}

	admin := newAdmin()
	scope, err := ListScope(admin)
	if err != nil || scope != nil {
		t.Fatalf("admin must list everything, scope=%v err=%v", scope, err)
	}

	user := newUser()
	scope, err = ListScope(user)
	if err != nil || scope == nil || *scope != user.ID {
		t.Fatalf("user must be scoped to own id, scope=%v err=%v", scope, err)
	}
}

func TestCanViewHidesOtherUsersRequests(t *testing.T) {
	a, b := newUser(), newUser()
	target := Target{OwnerID: b.ID, Status: StatusPending}

	if err := CanView(a, target); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := CanView(b, target); err != nil {
		t.Fatalf("owner must see own request: %v", err)
	}
	if err := CanView(newAdmin(), target); err != nil {
		t.Fatalf("admin must see every request: %v", err)
	}
	if err := CanView(nil, target); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestCanViewResponsesIsForbiddenForStrangers(t *testing.T) {
	a, b := newUser(), newUser()
	target := Target{OwnerID: b.ID, Status: StatusResolved}

	if err := CanViewResponses(a, target); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := CanViewResponses(b, target); err != nil {
		t.Fatalf("owner: %v", err)
	}
	if err := CanViewResponses(newAdmin(), target); err != nil {
		t.Fatalf("admin: %v", err)
	}
}

func TestAuthorizeCreateForcesInitialState(t *testing.T) {
	user := newUser()

	req, err := AuthorizeCreate(user, Draft{
		Title:       "Lâmpada queimada",
		Description: "Poste 123 apagado",
		Category:    "iluminacao",
		Status:      "RESOLVED",
		Priority:    "URGENT",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if req.OwnerID != user.ID {
		t.Fatalf("owner must be forced to caller")
	}
	if req.Status != StatusPending || req.Priority != PriorityMedium {
		t.Fatalf("expected PENDING/MEDIUM, got %s/%s", req.Status, req.Priority)
	}
	if req.Category != CategoryIluminacao {
		t.Fatalf("expected normalized category, got %s", req.Category)
	}
	if req.Location != nil {
		t.Fatalf("empty location must stay nil")
	}
}

func TestAuthorizeCreateRequiredFields(t *testing.T) {
	user := newUser()
	drafts := []Draft{
		{Description: "d", Category: "OUTROS"},
		{Title: "t", Category: "OUTROS"},
		{Title: "t", Description: "d"},
		{Title: "t", Description: "d", Category: "nada"},
		{Title: "   ", Description: "d", Category: "OUTROS"},
	}
	for i, d := range drafts {
		if _, err := AuthorizeCreate(user, d); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("draft %d: expected ErrInvalidArgument, got %v", i, err)
		}
	}
	if _, err := AuthorizeCreate(nil, Draft{Title: "t", Description: "d", Category: "OUTROS"}); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestAuthorizeUpdateAdminMayChangeEverything(t *testing.T) {
	admin := newAdmin()
	target := Target{OwnerID: uuid.New(), Status: StatusResolved}

	changes, guard, err := AuthorizeUpdate(admin, target, Patch{
		Status:   strPtr("pending"),
		Priority: strPtr("high"),
		Title:    strPtr("Novo título"),
		Category: strPtr("limpeza"),
	})
	if err != nil {
		t.Fatalf("admin update: %v", err)
	}
	if changes.Status == nil || *changes.Status != StatusPending {
		t.Fatalf("admin must be able to move a resolved request back to pending")
	}
	if changes.Priority == nil || *changes.Priority != PriorityHigh {
		t.Fatalf("priority not normalized")
	}
	if changes.Category == nil || *changes.Category != CategoryLimpeza {
		t.Fatalf("category not normalized")
	}
	if guard.OwnerID != nil || guard.RequirePending {
		t.Fatalf("admin writes must be unconditional, got %+v", guard)
	}
}

func TestAuthorizeUpdateAdminRejectsUnknownEnum(t *testing.T) {
	_, _, err := AuthorizeUpdate(newAdmin(), Target{OwnerID: uuid.New(), Status: StatusPending}, Patch{Status: strPtr("ARCHIVED")})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestAuthorizeUpdateOwnerDropsStatusAndPriority(t *testing.T) {
	user := newUser()
	target := Target{OwnerID: user.ID, Status: StatusPending}

	changes, guard, err := AuthorizeUpdate(user, target, Patch{
		Title:    strPtr("Buraco maior"),
		Status:   strPtr("RESOLVED"),
		Priority: strPtr("URGENT"),
	})
	if err != nil {
		t.Fatalf("owner update: %v", err)
	}
	if changes.Status != nil || changes.Priority != nil {
		t.Fatalf("status/priority must be dropped for non-admins: %+v", changes)
	}
	if changes.Title == nil || *changes.Title != "Buraco maior" {
		t.Fatalf("title must be kept")
	}
	if guard.OwnerID == nil || *guard.OwnerID != user.ID || !guard.RequirePending {
		t.Fatalf("owner writes must be guarded, got %+v", guard)
	}
}

func TestAuthorizeUpdateOwnerOnlyWhilePending(t *testing.T) {
	user := newUser()
	for _, status := range []Status{StatusInProgress, StatusResolved, StatusRejected} {
		_, _, err := AuthorizeUpdate(user, Target{OwnerID: user.ID, Status: status}, Patch{Title: strPtr("x")})
		if !errors.Is(err, ErrForbidden) {
			t.Fatalf("status %s: expected ErrForbidden, got %v", status, err)
		}
	}
}

func TestAuthorizeUpdateStrangerGetsNotFound(t *testing.T) {
	_, _, err := AuthorizeUpdate(newUser(), Target{OwnerID: uuid.New(), Status: StatusPending}, Patch{Category: strPtr("invalida")})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound before validation, got %v", err)
	}
}

func TestAuthorizeUpdateLocationHandling(t *testing.T) {
	user := newUser()
	target := Target{OwnerID: user.ID, Status: StatusPending}

	changes, _, err := AuthorizeUpdate(user, target, Patch{Location: strPtr("  ")})
	if err != nil || !changes.ClearLocation {
		t.Fatalf("blank location must clear it, changes=%+v err=%v", changes, err)
	}

	changes, _, err = AuthorizeUpdate(user, target, Patch{ClearLocation: true})
	if err != nil || !changes.ClearLocation {
		t.Fatalf("explicit null must clear location")
	}

	changes, _, err = AuthorizeUpdate(user, target, Patch{Title: strPtr("")})
	if err != nil || !changes.Empty() {
		t.Fatalf("empty title must be ignored, changes=%+v", changes)
	}
}

func TestAuthorizeDelete(t *testing.T) {
	user := newUser()

	if _, err := AuthorizeDelete(user, Target{OwnerID: user.ID, Status: StatusPending}); err != nil {
		t.Fatalf("owner pending delete: %v", err)
	}
	if _, err := AuthorizeDelete(user, Target{OwnerID: user.ID, Status: StatusInProgress}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := AuthorizeDelete(user, Target{OwnerID: uuid.New(), Status: StatusPending}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	guard, err := AuthorizeDelete(newAdmin(), Target{OwnerID: uuid.New(), Status: StatusRejected})
	if err != nil || guard.RequirePending {
		t.Fatalf("admin may delete anything, guard=%+v err=%v", guard, err)
	}
}

func TestAuthorizeAttachFollowsUpdateRule(t *testing.T) {
	user := newUser()
	if err := AuthorizeAttach(user, Target{OwnerID: user.ID, Status: StatusPending}); err != nil {
		t.Fatalf("owner pending attach: %v", err)
	}
	if err := AuthorizeAttach(user, Target{OwnerID: user.ID, Status: StatusResolved}); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := AuthorizeAttach(newAdmin(), Target{OwnerID: user.ID, Status: StatusResolved}); err != nil {
		t.Fatalf("admin attach: %v", err)
	}
}

func TestAuthorizeRespond(t *testing.T) {
	if err := AuthorizeRespond(newAdmin()); err != nil {
		t.Fatalf("admin respond: %v", err)
	}
	if err := AuthorizeRespond(newUser()); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := AuthorizeRespond(nil); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if _, err := ValidateResponseMessage("   "); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestAuthorizeNotificationUpdate(t *testing.T) {
	user := newUser()
	if err := AuthorizeNotificationUpdate(user, user.ID); err != nil {
		t.Fatalf("recipient: %v", err)
	}
	if err := AuthorizeNotificationUpdate(newAdmin(), user.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for admin, got %v", err)
	}
}

func TestResponseNotificationMessage(t *testing.T) {
	got := ResponseNotificationMessage("Equipe enviada")
	if got != "Um administrador respondeu sua solicitação: Equipe enviada" {
		t.Fatalf("unexpected message %q", got)
	}

	exact := strings.Repeat("a", 100)
	if got := ResponseNotificationMessage(exact); got != ResponseNotificationPrefix+exact {
		t.Fatalf("100 chars must be kept verbatim, got %q", got)
	}

	long := strings.Repeat("b", 150)
	want := ResponseNotificationPrefix + strings.Repeat("b", 100) + "..."
	if got := ResponseNotificationMessage(long); got != want {
		t.Fatalf("expected truncation, got %q", got)
	}

	accented := strings.Repeat("ç", 101)
	want = ResponseNotificationPrefix + strings.Repeat("ç", 100) + "..."
	if got := ResponseNotificationMessage(accented); got != want {
		t.Fatalf("truncation must count characters, got %q", got)
	}
}

func TestResponseNotificationAddressesOwner(t *testing.T) {
	owner := uuid.New()
	requestID := uuid.New()

	draft := ResponseNotification(Target{OwnerID: owner, Status: StatusPending}, requestID, "ok")
	if draft.UserID != owner || draft.RequestID != requestID || draft.Title != ResponseNotificationTitle {
		t.Fatalf("unexpected draft %+v", draft)
	}
}
