package main

import "testing"

func TestRunInformational(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"Version", []string{"--version"}},
		{"Version Short", []string{"-v"}},
		{"Help", []string{"--help"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := run(tt.args); err != nil {
				t.Errorf("want nil error; got %v", err)
			}
		})
	}
}
