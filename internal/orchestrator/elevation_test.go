package orchestrator

import "testing"

func TestNeedsElevation(t *testing.T) {
	cases := []struct {
		command string
		want    bool
	}{
		{"sudo pacman -Syu", true},
		{"echo done && sudo reboot-helper", true},
		{"SUDO apt update", true},
		{"pacman -S htop", false},
		{"echo sudoku", false},
	}
	for _, tc := range cases {
		if got := needsElevation(tc.command); got != tc.want {
			t.Errorf("needsElevation(%q) = %v, want %v", tc.command, got, tc.want)
		}
	}
}

func TestRewriteElevated(t *testing.T) {
	cases := []struct {
		command string
		tool    string
		want    string
	}{
		{"sudo systemctl restart nginx", "pkexec", "pkexec systemctl restart nginx"},
		{"sudo pacman -Syu", "doas", "doas pacman -Syu"},
		{"sudo pacman -Syu", "", "sudo pacman -Syu"},
		{"sudo sudo id", "pkexec", "pkexec id"},
		{"sudo ls /root", "su", `su -c "ls /root"`},
	}
	for _, tc := range cases {
		if got := RewriteElevated(tc.command, tc.tool); got != tc.want {
			t.Errorf("RewriteElevated(%q, %q) = %q, want %q", tc.command, tc.tool, got, tc.want)
		}
	}
}
