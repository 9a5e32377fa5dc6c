package post

import (
	"strings"
	"testing"
	"time"

	"github.com/orgball2608/social-poster-telegram-bot/internal/domain"
)

func TestFetchDueQuerySkipsClaimedAndLockedRows(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	query, args, err := fetchDueQuery(now)
	if err != nil {
		t.Fatalf("fetchDueQuery: %v", err)
	}

	for _, fragment := range []string{
		"FROM scheduled_posts",
		"status = $1",
		"schedule_at <= $2",
		"(claimed_until IS NULL OR claimed_until <= $3)",
		"ORDER BY schedule_at ASC, created_at ASC, id ASC",
		"FOR UPDATE SKIP LOCKED",
	} {
		if !strings.Contains(query, fragment) {
			t.Errorf("query missing %q:\n%s", fragment, query)
		}
	}

	if len(args) != 3 {
		t.Fatalf("got %d args, want 3: %v", len(args), args)
	}
	if args[0] != domain.StatusQueued {
		t.Errorf("status arg = %v, want %v", args[0], domain.StatusQueued)
	}
	for i := 1; i <= 2; i++ {
		ts, ok := args[i].(time.Time)
		if !ok || !ts.Equal(now) {
			t.Errorf("arg %d = %v, want %v", i, args[i], now)
		}
	}
}

func TestClaimQueryLeasesEveryFetchedRow(t *testing.T) {
	t.Parallel()

	until := time.Date(2024, 3, 1, 12, 5, 0, 0, time.UTC)
	query, args, err := claimQuery([]string{"a", "b"}, until)
	if err != nil {
		t.Fatalf("claimQuery: %v", err)
	}

	if !strings.Contains(query, "SET claimed_until = $1") {
		t.Errorf("query does not set the lease:\n%s", query)
	}
	if !strings.Contains(query, "id IN ($2,$3)") {
		t.Errorf("query does not target the fetched ids:\n%s", query)
	}
	if len(args) != 3 {
		t.Fatalf("got %d args, want 3: %v", len(args), args)
	}
	ts, ok := args[0].(time.Time)
	if !ok || !ts.Equal(until) {
		t.Errorf("lease arg = %v, want %v", args[0], until)
	}
}

// A post handed back to the queue must be claimable again immediately,
// whatever write released it.
func TestStatusAndRescheduleWritesReleaseClaim(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		build func() (string, []interface{}, error)
	}{
		{
			name: "status change",
			build: func() (string, []interface{}, error) {
				return markStatusQuery("p1", domain.StatusFailed)
			},
		},
		{
			name: "reschedule",
			build: func() (string, []interface{}, error) {
				return rescheduleQuery("p1", time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC))
			},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			query, args, err := tc.build()
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			if !strings.Contains(query, "claimed_until = $2") {
				t.Errorf("query does not touch the claim:\n%s", query)
			}
			if len(args) != 3 {
				t.Fatalf("got %d args, want 3: %v", len(args), args)
			}
			if args[1] != nil {
				t.Errorf("claim arg = %v, want NULL", args[1])
			}
			if args[2] != "p1" {
				t.Errorf("id arg = %v, want p1", args[2])
			}
		})
	}
}
