package application_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/example/gym-admin/internal/application"
	"github.com/example/gym-admin/internal/testfixtures"
)

func strPtr(value string) *string {
	return &value
}

func TestMemberService_List(t *testing.T) {
	t.Parallel()

	t.Run("returns the seed dataset after simulated latency", func(t *testing.T) {
		t.Parallel()
		factory := testfixtures.NewServiceFactory()
		svc := factory.NewMemberService(nil)
		start := factory.Clock.Current()

		result, err := svc.List(context.Background())
		if err != nil {
			t.Fatalf("List returned error: %v", err)
		}
		if !result.Success || result.Message != "Members fetched successfully" {
			t.Fatalf("unexpected envelope: %+v", result)
		}
		if len(result.Data) != 4 || result.Data[0].Name != "John Smith" {
			t.Fatalf("expected seed members, got %+v", result.Data)
		}
		if elapsed := factory.Clock.Current().Sub(start); elapsed != application.LatencyMemberList {
			t.Fatalf("expected %v latency, got %v", application.LatencyMemberList, elapsed)
		}
	})

	t.Run("fails with a transient network error when the fault fires", func(t *testing.T) {
		t.Parallel()
		factory := testfixtures.NewServiceFactory()
		svc := factory.NewMemberService(application.NewFaultInjector(1, 0))

		_, err := svc.List(context.Background())
		if !errors.Is(err, application.ErrTransientNetwork) {
			t.Fatalf("expected ErrTransientNetwork, got %v", err)
		}
		if err.Error() != "Network error: Failed to fetch members" {
			t.Fatalf("unexpected message %q", err.Error())
		}
	})

	t.Run("seeded injector produces a repeatable failure pattern", func(t *testing.T) {
		t.Parallel()
		sample := func() []bool {
			factory := testfixtures.NewServiceFactory()
			svc := factory.NewMemberService(application.NewFaultInjector(application.DefaultMemberFaults, 42))
			outcomes := make([]bool, 50)
			for i := range outcomes {
				_, err := svc.List(context.Background())
				outcomes[i] = err != nil
			}
			return outcomes
		}
		first, second := sample(), sample()
		for i := range first {
			if first[i] != second[i] {
				t.Fatalf("expected identical outcomes at call %d", i)
			}
		}
	})
}

func TestMemberService_Search(t *testing.T) {
	t.Parallel()

	factory := testfixtures.NewServiceFactory()
	svc := factory.NewMemberService(nil)

	result, err := svc.Search(context.Background(), application.MemberFilter{Search: "SARAH"})
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(result.Data) != 1 || result.Data[0].ID != 2 {
		t.Fatalf("expected Sarah only, got %+v", result.Data)
	}

	result, err = svc.Search(context.Background(), application.MemberFilter{Plan: "Premium", Status: application.MemberExpired})
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(result.Data) != 1 || result.Data[0].ID != 3 {
		t.Fatalf("expected Mike only, got %+v", result.Data)
	}
}

func TestMemberService_Create(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name       string
		expiry     string
		amount     *string
		wantStatus application.MemberStatus
		wantDue    string
	}{
		{name: "far expiry is active", expiry: "2024-03-15", amount: strPtr("40"), wantStatus: application.MemberActive, wantDue: "40"},
		{name: "expiry within a week is pending", expiry: "2024-02-05", amount: strPtr("12.5kg"), wantStatus: application.MemberPending, wantDue: "12.5"},
		{name: "past expiry is expired", expiry: "2024-01-01", amount: strPtr("abc"), wantStatus: application.MemberExpired, wantDue: "0"},
		{name: "missing amount becomes zero", expiry: "2024-03-15", wantStatus: application.MemberActive, wantDue: "0"},
		{name: "negative amount becomes zero", expiry: "2024-03-15", amount: strPtr("-5"), wantStatus: application.MemberActive, wantDue: "0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			factory := testfixtures.NewServiceFactory()
			svc := factory.NewMemberService(nil)

			result, err := svc.Create(context.Background(), application.MemberInput{
				Name:       strPtr(" New Member "),
				Email:      strPtr("new@example.com"),
				Plan:       strPtr("Basic"),
				StartDate:  strPtr("2024-02-01"),
				ExpiryDate: strPtr(tc.expiry),
				Amount:     tc.amount,
			})
			if err != nil {
				t.Fatalf("Create returned error: %v", err)
			}
			if result.Message != "Member added successfully" {
				t.Fatalf("unexpected message %q", result.Message)
			}
			if result.Data.ID != 5 {
				t.Fatalf("expected id 5 after seed, got %d", result.Data.ID)
			}
			if result.Data.Name != "New Member" {
				t.Fatalf("expected trimmed name, got %q", result.Data.Name)
			}
			if result.Data.Status != tc.wantStatus {
				t.Fatalf("expected status %s, got %s", tc.wantStatus, result.Data.Status)
			}
			if !result.Data.DueAmount.Equal(decimal.RequireFromString(tc.wantDue)) {
				t.Fatalf("expected due %s, got %s", tc.wantDue, result.Data.DueAmount)
			}
			if got := svc.Snapshot(context.Background()); len(got) != 5 {
				t.Fatalf("expected member persisted, got %d members", len(got))
			}
		})
	}

	t.Run("concurrent creates receive distinct ids", func(t *testing.T) {
		t.Parallel()
		factory := testfixtures.NewServiceFactory()
		svc := factory.NewMemberService(nil)

		var wg sync.WaitGroup
		ids := make(chan int, 10)
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				result, err := svc.Create(context.Background(), application.MemberInput{Name: strPtr("parallel")})
				if err != nil {
					t.Errorf("Create returned error: %v", err)
					return
				}
				ids <- result.Data.ID
			}()
		}
		wg.Wait()
		close(ids)

		seen := map[int]bool{}
		for id := range ids {
			if seen[id] {
				t.Fatalf("duplicate id %d", id)
			}
			seen[id] = true
		}
		if len(svc.Snapshot(context.Background())) != 14 {
			t.Fatalf("expected 14 members after concurrent creates")
		}
	})
}

func TestMemberService_Update(t *testing.T) {
	t.Parallel()

	t.Run("explicit status is stored verbatim", func(t *testing.T) {
		t.Parallel()
		factory := testfixtures.NewServiceFactory()
		svc := factory.NewMemberService(nil)
		status := application.MemberExpired

		result, err := svc.Update(context.Background(), 1, application.MemberInput{
			ExpiryDate: strPtr("2030-01-01"),
			Status:     &status,
		})
		if err != nil {
			t.Fatalf("Update returned error: %v", err)
		}
		if result.Data.Status != application.MemberExpired {
			t.Fatalf("expected explicit Expired status, got %s", result.Data.Status)
		}
		if result.Data.ExpiryDate != "2030-01-01" || result.Data.Name != "John Smith" {
			t.Fatalf("expected merge over existing record, got %+v", result.Data)
		}
	})

	t.Run("status is re-derived from the effective expiry", func(t *testing.T) {
		t.Parallel()
		factory := testfixtures.NewServiceFactory()
		svc := factory.NewMemberService(nil)

		result, err := svc.Update(context.Background(), 1, application.MemberInput{Phone: strPtr("555")})
		if err != nil {
			t.Fatalf("Update returned error: %v", err)
		}
		// Seed expiry 2024-02-15 is two weeks after the reference time.
		if result.Data.Status != application.MemberActive {
			t.Fatalf("expected derived Active, got %s", result.Data.Status)
		}

		result, err = svc.Update(context.Background(), 4, application.MemberInput{Amount: strPtr("0")})
		if err != nil {
			t.Fatalf("Update returned error: %v", err)
		}
		if result.Data.Status != application.MemberPending || !result.Data.DueAmount.IsZero() {
			t.Fatalf("expected Pending with cleared due, got %+v", result.Data)
		}
	})

	t.Run("unknown status is rejected before any write", func(t *testing.T) {
		t.Parallel()
		factory := testfixtures.NewServiceFactory()
		svc := factory.NewMemberService(nil)
		status := application.MemberStatus("Frozen")

		_, err := svc.Update(context.Background(), 1, application.MemberInput{Status: &status})
		var vErr *application.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := factory.Backend.Raw("gym_members_data"); ok {
			t.Fatalf("expected nothing persisted")
		}
	})

	t.Run("missing member reports not found", func(t *testing.T) {
		t.Parallel()
		factory := testfixtures.NewServiceFactory()
		svc := factory.NewMemberService(nil)

		_, err := svc.Update(context.Background(), 99, application.MemberInput{Name: strPtr("x")})
		if !errors.Is(err, application.ErrNotFound) || err.Error() != "Member not found" {
			t.Fatalf("expected Member not found, got %v", err)
		}
	})
}

func TestMemberService_DeleteAndClear(t *testing.T) {
	t.Parallel()

	factory := testfixtures.NewServiceFactory()
	svc := factory.NewMemberService(nil)
	ctx := context.Background()

	result, err := svc.Delete(ctx, 2)
	if err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if result.Data.Name != "Sarah Johnson" || result.Message != "Member deleted successfully" {
		t.Fatalf("unexpected delete result %+v", result)
	}
	if _, err := svc.Delete(ctx, 2); !errors.Is(err, application.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if _, err := svc.Get(ctx, 2); !errors.Is(err, application.ErrNotFound) {
		t.Fatalf("expected Get to miss deleted member, got %v", err)
	}

	cleared, err := svc.Clear(ctx)
	if err != nil || cleared.Message != "Data cleared successfully" {
		t.Fatalf("unexpected clear result %+v, %v", cleared, err)
	}
	if got := svc.Snapshot(ctx); len(got) != 4 {
		t.Fatalf("expected seed after clear, got %d members", len(got))
	}
}

func TestMemberService_PersistsAcrossInstances(t *testing.T) {
	t.Parallel()

	harness := testfixtures.NewSQLiteHarness(t)
	factory := testfixtures.NewServiceFactory(testfixtures.WithStore(harness.Store))
	ctx := context.Background()

	if _, err := factory.NewMemberService(nil).Create(ctx, application.MemberInput{Name: strPtr("Durable")}); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	reopened := testfixtures.NewServiceFactory(testfixtures.WithStore(harness.Store)).NewMemberService(nil)
	result, err := reopened.Get(ctx, 5)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if result.Data.Name != "Durable" {
		t.Fatalf("expected persisted member, got %+v", result.Data)
	}
}

func TestMemberService_AssignsIDs(t *testing.T) {
	t.Parallel()

	create := func(t *testing.T, svc *application.MemberService, name string) int {
		t.Helper()
		result, err := svc.Create(context.Background(), application.MemberInput{Name: strPtr(name)})
		if err != nil {
			t.Fatalf("Create returned error: %v", err)
		}
		return result.Data.ID
	}

	t.Run("starts at one for an empty persisted collection", func(t *testing.T) {
		t.Parallel()
		factory := testfixtures.NewServiceFactory()
		testfixtures.SeedMembers(context.Background(), factory.Store)
		svc := factory.NewMemberService(nil)

		for want := 1; want <= 3; want++ {
			if got := create(t, svc, "Member"); got != want {
				t.Fatalf("expected id %d, got %d", want, got)
			}
		}
	})

	t.Run("continues from the highest id when deletes leave gaps", func(t *testing.T) {
		t.Parallel()
		factory := testfixtures.NewServiceFactory()
		testfixtures.SeedMembers(context.Background(), factory.Store,
			testfixtures.NewMember(testfixtures.WithMemberID(3)),
			testfixtures.NewMember(testfixtures.WithMemberID(7)),
		)
		svc := factory.NewMemberService(nil)

		if got := create(t, svc, "After gap"); got != 8 {
			t.Fatalf("expected id 8, got %d", got)
		}
		if _, err := svc.Delete(context.Background(), 8); err != nil {
			t.Fatalf("Delete returned error: %v", err)
		}
		if got := create(t, svc, "Reused"); got != 8 {
			t.Fatalf("expected id 8 once the highest record is gone, got %d", got)
		}
	})
}

func TestMemberService_ClearRestoresSeed(t *testing.T) {
	t.Parallel()

	factory := testfixtures.NewServiceFactory()
	svc := factory.NewMemberService(nil)
	ctx := context.Background()

	if _, err := svc.Create(ctx, application.MemberInput{Name: strPtr("Temporary")}); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if _, err := svc.Clear(ctx); err != nil {
		t.Fatalf("Clear returned error: %v", err)
	}

	result, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	want := []string{"John Smith", "Sarah Johnson", "Mike Wilson", "Emily Davis"}
	if len(result.Data) != len(want) {
		t.Fatalf("expected %d seed members, got %+v", len(want), result.Data)
	}
	for i, name := range want {
		if result.Data[i].ID != i+1 || result.Data[i].Name != name {
			t.Fatalf("expected seed member %d %q, got %+v", i+1, name, result.Data[i])
		}
	}
}

func TestMemberService_StorageOutage(t *testing.T) {
	t.Parallel()

	factory := testfixtures.NewServiceFactory()
	svc := factory.NewMemberService(nil)
	ctx := context.Background()

	if _, err := svc.Create(ctx, application.MemberInput{Name: strPtr("Existing")}); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	outage := errors.New("disk unavailable")
	factory.Backend.FailReads(outage)
	if _, err := svc.Create(ctx, application.MemberInput{Name: strPtr("Lost")}); !errors.Is(err, outage) {
		t.Fatalf("expected outage error, got %v", err)
	}
	factory.Backend.FailReads(nil)

	members := svc.Snapshot(ctx)
	if len(members) != 5 || members[4].Name != "Existing" {
		t.Fatalf("expected stored members to survive the outage, got %+v", members)
	}
}
