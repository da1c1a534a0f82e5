package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/vshulcz/vnstat-exporter/internal/domain"
)

func execute(t *testing.T, d deps, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(d)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRoot_Version(t *testing.T) {
	out, err := execute(t, defaultDeps(), "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "Build version: N/A") {
		t.Errorf("output = %q", out)
	}
}

func TestRoot_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "port", args: []string{"--port", "0"}, want: "port"},
		{name: "source", args: []string{"--source", "snmp"}, want: "unknown source"},
		{name: "unknown flag", args: []string{"--nope"}, want: "unknown flag"},
		{name: "extra args", args: []string{"serve-now"}, want: "unknown command"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, defaultDeps(), tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestRoot_Check(t *testing.T) {
	d, _ := testDeps(fakeSampler{samples: []domain.InterfaceSample{{Name: "eth0", RX: 3, TX: 4}}})
	out, err := execute(t, d, "check", "--log-level", "error")
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !strings.Contains(out, `vnstat_traffic_total{direction="tx",interface="eth0"} 4`) {
		t.Errorf("output = %q", out)
	}
}

func TestRoot_CheckFails(t *testing.T) {
	d, _ := testDeps(fakeSampler{err: domain.ErrParse})
	_, err := execute(t, d, "check", "--log-level", "error")
	if !errors.Is(err, domain.ErrParse) {
		t.Fatalf("err = %v, want ErrParse", err)
	}

	_, err = execute(t, defaultDeps(), "check", "--retries", "0", "--log-level", "error",
		"--vnstat-path", "/nonexistent/vnstat")
	if !errors.Is(err, domain.ErrSourceUnavailable) {
		t.Fatalf("err = %v, want ErrSourceUnavailable", err)
	}
}
