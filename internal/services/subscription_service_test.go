package services

import (
	"context"
	"errors"
	"testing"

	"fintrack/internal/core"
)

func TestSubscriptionService_Create(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	card := f.card(t, "alice")

	tests := []struct {
		name    string
		in      SubscriptionInput
		wantErr string
	}{
		{
			name: "monthly on card",
			in: SubscriptionInput{
				Description: "Netflix", Amount: amount("55.90"), CategoryID: f.food.ID,
				Frequency: core.Monthly, DayOfMonth: core.IntPtr(31), CreditCardID: core.StringPtr(card.ID),
			},
		},
		{
			name: "weekly",
			in: SubscriptionInput{
				Description: "Feira", Amount: amount("80"), CategoryID: f.food.ID,
				Frequency: core.Weekly, DayOfWeek: core.IntPtr(6),
			},
		},
		{
			name: "weekly with day of month",
			in: SubscriptionInput{
				Description: "Feira", Amount: amount("80"), CategoryID: f.food.ID,
				Frequency: core.Weekly, DayOfWeek: core.IntPtr(6), DayOfMonth: core.IntPtr(3),
			},
			wantErr: "dayOfMonth",
		},
		{
			name: "yearly without month",
			in: SubscriptionInput{
				Description: "IPVA", Amount: amount("900"), CategoryID: f.food.ID,
				Frequency: core.Yearly, DayOfMonth: core.IntPtr(10),
			},
			wantErr: "month",
		},
		{
			name: "unknown category",
			in: SubscriptionInput{
				Description: "Spotify", Amount: amount("21.90"), CategoryID: "nope",
				Frequency: core.Monthly, DayOfMonth: core.IntPtr(5),
			},
			wantErr: "categoryId",
		},
		{
			name: "unknown card",
			in: SubscriptionInput{
				Description: "Spotify", Amount: amount("21.90"), CategoryID: f.food.ID,
				Frequency: core.Monthly, DayOfMonth: core.IntPtr(5), CreditCardID: core.StringPtr("nope"),
			},
			wantErr: "creditCardId",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, err := f.subs.Create(ctx, "alice", tt.in)
			if tt.wantErr != "" {
				if !hasField(err, tt.wantErr) {
					t.Errorf("err = %v, want field %s", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			if !sub.IsActive || sub.CategoryName != "Alimentação" {
				t.Errorf("sub = %+v", sub)
			}
		})
	}
}

func TestSubscriptionService_UpdateFrequencyDropsOldAnchors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	sub, err := f.subs.Create(ctx, "alice", SubscriptionInput{
		Description: "Academia", Amount: amount("120"), CategoryID: f.food.ID,
		Frequency: core.Monthly, DayOfMonth: core.IntPtr(5),
	})
	if err != nil {
		t.Fatal(err)
	}

	weekly := core.Weekly
	updated, err := f.subs.Update(ctx, "alice", sub.ID, SubscriptionUpdate{Frequency: &weekly, DayOfWeek: core.IntPtr(1)})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.DayOfMonth != nil || updated.DayOfWeek == nil || *updated.DayOfWeek != 1 {
		t.Errorf("updated = %+v", updated)
	}

	yearly := core.Yearly
	if _, err := f.subs.Update(ctx, "alice", sub.ID, SubscriptionUpdate{Frequency: &yearly}); !errors.Is(err, core.ErrValidation) {
		t.Errorf("yearly without anchors: err = %v, want ErrValidation", err)
	}
}

func TestSubscriptionService_CancelAndUpcoming(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	create := func(in SubscriptionInput) *core.Subscription {
		t.Helper()
		in.Amount = amount("10")
		in.CategoryID = f.food.ID
		sub, err := f.subs.Create(ctx, "alice", in)
		if err != nil {
			t.Fatal(err)
		}
		return sub
	}

	// Today is Saturday 15/03/2025.
	monthly := create(SubscriptionInput{Description: "Internet", Frequency: core.Monthly, DayOfMonth: core.IntPtr(20)})
	weekly := create(SubscriptionInput{Description: "Diarista", Frequency: core.Weekly, DayOfWeek: core.IntPtr(1)})
	create(SubscriptionInput{Description: "Anuidade", Frequency: core.Yearly, DayOfMonth: core.IntPtr(25), Month: core.IntPtr(12)})
	cancelled := create(SubscriptionInput{Description: "Jornal", Frequency: core.Monthly, DayOfMonth: core.IntPtr(16)})

	if err := f.subs.Cancel(ctx, "alice", cancelled.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	renewals, err := f.subs.Upcoming(ctx, "alice", 7)
	if err != nil {
		t.Fatalf("Upcoming: %v", err)
	}
	if len(renewals) != 2 {
		t.Fatalf("renewals = %+v, want 2", renewals)
	}
	if renewals[0].Subscription.ID != weekly.ID || renewals[0].Date != core.NewCalendarDate(2025, 3, 17) {
		t.Errorf("first renewal = %+v", renewals[0])
	}
	if renewals[1].Subscription.ID != monthly.ID || renewals[1].Date != core.NewCalendarDate(2025, 3, 20) {
		t.Errorf("second renewal = %+v", renewals[1])
	}

	active, err := f.subs.ListActive(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 3 {
		t.Errorf("active = %d, want 3", len(active))
	}
}
