package automation

import (
	"strings"
	"testing"

	"handyman_server/core/domain"
)

func TestExtract_ClientName(t *testing.T) {
	displayName := "Maria Santos"

	tests := []struct {
		name  string
		email *domain.Email
		want  string
	}{
		{
			name: "display name wins when present",
			email: &domain.Email{
				FromEmail: "msantos@example.com",
				FromName:  &displayName,
			},
			want: "Maria Santos",
		},
		{
			name:  "dotted local part humanized",
			email: &domain.Email{FromEmail: "john.doe@example.com"},
			want:  "John Doe",
		},
		{
			name:  "underscore and hyphen separators",
			email: &domain.Email{FromEmail: "anna_lee-smith@example.com"},
			want:  "Anna Lee Smith",
		},
		{
			name:  "single word local part",
			email: &domain.Email{FromEmail: "BOB@example.com"},
			want:  "Bob",
		},
		{
			name:  "malformed address without at-sign",
			email: &domain.Email{FromEmail: "noreply"},
			want:  "Noreply",
		},
		{
			name:  "empty sender yields empty name",
			email: &domain.Email{FromEmail: ""},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := Extract(tt.email)
			if info.ClientName != tt.want {
				t.Errorf("ClientName = %q, want %q", info.ClientName, tt.want)
			}
		})
	}
}

func TestExtract_Urgency(t *testing.T) {
	tests := []struct {
		name string
		text string
		want domain.Urgency
	}{
		{"urgent keyword", "This is urgent, the sink is flooding", domain.UrgencyHigh},
		{"broken appliance", "My garage door is broken", domain.UrgencyHigh},
		{"asap", "Please come ASAP", domain.UrgencyHigh},
		{"not working", "The heater is not working since yesterday", domain.UrgencyHigh},
		{"explicit calm phrasing", "No rush at all, whenever you have time", domain.UrgencyLow},
		{"planning ahead", "Just wondering about prices, planning ahead for spring", domain.UrgencyLow},
		{"default is medium", "I would like a quote for painting my fence", domain.UrgencyMedium},
		{"high beats low when both present", "No rush... actually it is leaking now!", domain.UrgencyHigh},
		{"empty body", "", domain.UrgencyMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			email := &domain.Email{FromEmail: "a@b.com", Body: tt.text}
			info := Extract(email)
			if info.Urgency != tt.want {
				t.Errorf("Urgency = %q, want %q", info.Urgency, tt.want)
			}
		})
	}
}

func TestExtract_Budget(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		want       float64
		wantAbsent bool
	}{
		{"dollar amount", "My budget is around $1,500 for this", 1500, false},
		{"dollar with cents", "I can spend $250.50 max", 250.5, false},
		{"euro symbol", "Offering €80 per hour", 80, false},
		{"bare number with budget context", "We have a budget of 2000 for the remodel", 2000, false},
		{"number before budget word", "roughly 750 is our budget", 750, false},
		{"dollars suffix", "willing to pay 300 dollars", 300, false},
		{"no monetary info", "Please send someone next week", 0, true},
		{"quantity is not a budget", "I need 3 outlets installed", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			email := &domain.Email{FromEmail: "a@b.com", Body: tt.text}
			info := Extract(email)

			if tt.wantAbsent {
				if info.EstimatedBudget != nil {
					t.Errorf("EstimatedBudget = %v, want absent", *info.EstimatedBudget)
				}
				return
			}
			if info.EstimatedBudget == nil {
				t.Fatal("EstimatedBudget absent, want value")
			}
			if *info.EstimatedBudget != tt.want {
				t.Errorf("EstimatedBudget = %v, want %v", *info.EstimatedBudget, tt.want)
			}
		})
	}
}

func TestExtract_PreferredDate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"asap literal", "Can you come ASAP?", "ASAP"},
		{"iso date", "We are available from 2026-04-01 onwards", "2026-04-01"},
		{"slash date", "How about 12/15?", "12/15"},
		{"month name date", "Preferably March 15 if possible", "March 15"},
		{"weekday", "Could you come on Saturday morning?", "Saturday"},
		{"relative expression", "Sometime next week works for us", "next week"},
		{"no date", "Let me know your availability", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			email := &domain.Email{FromEmail: "a@b.com", Body: tt.text}
			info := Extract(email)
			if info.PreferredDate != tt.want {
				t.Errorf("PreferredDate = %q, want %q", info.PreferredDate, tt.want)
			}
		})
	}
}

func TestExtract_Description(t *testing.T) {
	t.Run("short body kept verbatim", func(t *testing.T) {
		email := &domain.Email{FromEmail: "a@b.com", Body: "Fix my door."}
		info := Extract(email)
		if info.Description != "Fix my door." {
			t.Errorf("Description = %q", info.Description)
		}
	})

	t.Run("whitespace collapsed", func(t *testing.T) {
		email := &domain.Email{FromEmail: "a@b.com", Body: "Fix\n\nmy   door\tplease."}
		info := Extract(email)
		if info.Description != "Fix my door please." {
			t.Errorf("Description = %q", info.Description)
		}
	})

	t.Run("long body truncated at word boundary", func(t *testing.T) {
		email := &domain.Email{FromEmail: "a@b.com", Body: strings.Repeat("needs repair work done ", 20)}
		info := Extract(email)
		if len(info.Description) > descriptionLimit+3 {
			t.Errorf("Description length = %d, want <= %d", len(info.Description), descriptionLimit+3)
		}
		if !strings.HasSuffix(info.Description, "...") {
			t.Errorf("truncated description should end with ellipsis: %q", info.Description)
		}
	})
}

func TestExtract_NeverFails(t *testing.T) {
	// Malformed input never panics and never produces required fields.
	hostile := []*domain.Email{
		{},
		{FromEmail: "@@@", Body: "$$$$ ////"},
		{FromEmail: "a@b.com", Subject: strings.Repeat("x", 10000)},
		{FromEmail: "a@b.com", Body: "\x00\x01\x02"},
	}

	for _, email := range hostile {
		info := Extract(email)
		if info.Urgency == "" {
			t.Error("Urgency should always have a bucket")
		}
	}
}
