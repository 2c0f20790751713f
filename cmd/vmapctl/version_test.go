package main

import (
	"encoding/json"
	"runtime"
	"testing"
)

func TestReadBuildInfo_Defaults(t *testing.T) {
	bi := readBuildInfo()
	if bi.Version == "" || bi.Commit == "" || bi.Date == "" {
		t.Errorf("empty fields: %+v", bi)
	}
	if bi.GoVersion != runtime.Version() {
		t.Errorf("go version = %q, want %q", bi.GoVersion, runtime.Version())
	}
}

func TestReadBuildInfo_LinkerValuesWin(t *testing.T) {
	oldVersion, oldCommit, oldDate := version, commit, date
	t.Cleanup(func() { version, commit, date = oldVersion, oldCommit, oldDate })
	version, commit, date = "v1.2.3", "abc123", "2025-01-02"

	bi := readBuildInfo()
	if bi.Version != "v1.2.3" || bi.Commit != "abc123" || bi.Date != "2025-01-02" {
		t.Errorf("linker values not used: %+v", bi)
	}
}

func TestVersionCmd_Output(t *testing.T) {
	setGlobals(t, false, false)
	out, err := captureOutput(t, func() error { return versionCmd.RunE(versionCmd, nil) })
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	assertContains(t, out, []string{"vmapctl ", "commit:", "built:", "go: " + runtime.Version()})
}

func TestVersionCmd_JSON(t *testing.T) {
	setGlobals(t, true, false)
	out, err := captureOutput(t, func() error { return versionCmd.RunE(versionCmd, nil) })
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	assertJSON(t, out)

	var bi BuildInfo
	if err := json.Unmarshal([]byte(out), &bi); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if bi.GoVersion != runtime.Version() {
		t.Errorf("unexpected build info: %+v", bi)
	}
}
