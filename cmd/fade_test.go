package cmd

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/Digni/winterm/internal/fade"
	"github.com/Digni/winterm/internal/winapi"
)

func TestParseFadeModes(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    []fade.Mode
		wantErr bool
	}{
		{name: "default is out then in", args: nil, want: []fade.Mode{fade.Out, fade.In}},
		{name: "out", args: []string{"out"}, want: []fade.Mode{fade.Out}},
		{name: "in", args: []string{"in"}, want: []fade.Mode{fade.In}},
		{name: "both", args: []string{"both"}, want: []fade.Mode{fade.Out, fade.In}},
		{name: "unknown", args: []string{"sideways"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFadeModes(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("parseFadeModes(%v) = %v, want %v", tt.args, got, tt.want)
			}
		})
	}
}

func TestFadeRunE_FadesResolvedWindow(t *testing.T) {
	cmd, _, fades := stubCommand(t, terminalDesktop())

	if err := fadeCmd.RunE(cmd, []string{"in"}); err != nil {
		t.Fatalf("RunE returned error: %v", err)
	}
	want := []fadeCall{{hwnd: testTerminal, mode: fade.In}}
	if !reflect.DeepEqual(*fades, want) {
		t.Fatalf("fades = %v, want %v", *fades, want)
	}
}

func TestFadeRunE_ResolutionFailureSkipsFade(t *testing.T) {
	fake := terminalDesktop()
	fake.Console = 0
	cmd, _, fades := stubCommand(t, fake)

	if err := fadeCmd.RunE(cmd, nil); err == nil {
		t.Fatal("expected error, got nil")
	}
	if len(*fades) != 0 {
		t.Fatalf("fades = %v, want none", *fades)
	}
}

func TestFadeRunE_ReportsFadeFailure(t *testing.T) {
	cmd, _, _ := stubCommand(t, terminalDesktop())
	failure := errors.New("set alpha failed")
	fadeWindow = func(context.Context, winapi.System, winapi.HWND, fade.Mode) error {
		return failure
	}

	if err := fadeCmd.RunE(cmd, []string{"out"}); !errors.Is(err, failure) {
		t.Fatalf("RunE error = %v, want %v", err, failure)
	}
}
