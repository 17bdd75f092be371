package category

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		label string
		want  Group
	}{
		{"Empty label", "", GroupCivil},
		{"Mosque", "Tarihi Cami", GroupReligious},
		{"Church", "Kilise", GroupReligious},
		{"Tomb", "Türbe ve Mezarlık", GroupReligious},
		{"Uppercase mosque", "CAMI", GroupReligious},
		{"Museum", "Müze", GroupMuseum},
		{"Archaeological site", "Arkeolojik Sit Alanı", GroupMuseum},
		{"Ancient city", "Antik Kent", GroupMuseum},
		{"Castle", "Kale", GroupMilitary},
		{"City walls", "Tarihi Surlar", GroupMilitary},
		{"Tower", "Kız Kulesi", GroupMilitary},
		{"Mansion", "Tarihi Konak", GroupCivil},
		{"Unmatched", "Köprü", GroupCivil},
		// "sit" matches before "kale" because religious/museum sets
		// are evaluated first
		{"Site with castle", "Kale Sit Alanı", GroupMuseum},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.label); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.label, got, tt.want)
			}
		})
	}
}
