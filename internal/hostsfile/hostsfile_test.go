package hostsfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/selfserve/proxyctl/internal/testutil/testlog"
)

const testDomain = "server.self-serve.windsurf.com"

func TestAddRedirectIdempotent(t *testing.T) {
	testlog.Start(t)
	table := Parse("127.0.0.1 localhost\n\n# comment\n")

	once, added := table.AddRedirect(testDomain)
	if !added {
		t.Fatalf("expected first add to append")
	}
	twice, added := once.AddRedirect(testDomain)
	if added {
		t.Fatalf("expected second add to be a no-op")
	}
	if once.Render() != twice.Render() {
		t.Fatalf("add not idempotent:\n%q\nvs\n%q", once.Render(), twice.Render())
	}
	if !strings.HasSuffix(once.Render(), RedirectLine(testDomain)+"\n") {
		t.Fatalf("canonical entry not appended: %q", once.Render())
	}
}

func TestAddRedirectTrimsTrailingWhitespace(t *testing.T) {
	testlog.Start(t)
	table := Parse("127.0.0.1 localhost\n\n\n")

	out, _ := table.AddRedirect(testDomain)
	want := "127.0.0.1 localhost\n" + RedirectLine(testDomain) + "\n"
	if out.Render() != want {
		t.Fatalf("unexpected render: %q want %q", out.Render(), want)
	}
}

func TestAddRedirectEmptyTable(t *testing.T) {
	testlog.Start(t)
	out, added := Parse("").AddRedirect(testDomain)
	if !added {
		t.Fatalf("expected add on empty table")
	}
	if out.Render() != RedirectLine(testDomain)+"\n" {
		t.Fatalf("unexpected render: %q", out.Render())
	}
}

func TestRemoveRedirectIdempotent(t *testing.T) {
	testlog.Start(t)
	table := Parse("1.2.3.4 example.com\n127.0.0.1 " + testDomain + "\n# note about " + testDomain + "\n")

	once, removed := table.RemoveRedirect(testDomain)
	if !removed {
		t.Fatalf("expected removal")
	}
	twice, removed := once.RemoveRedirect(testDomain)
	if removed {
		t.Fatalf("expected second removal to be a no-op")
	}
	if once.Render() != twice.Render() {
		t.Fatalf("remove not idempotent")
	}
	if once.HasRedirect(testDomain) {
		t.Fatalf("domain still present after removal: %q", once.Render())
	}
}

func TestRemoveAfterAddPreservesUnrelatedLines(t *testing.T) {
	testlog.Start(t)
	original := "127.0.0.1 localhost\n::1 localhost\n# infra block\n10.0.0.5 build-cache.internal\n"
	table := Parse(original)

	added, _ := table.AddRedirect(testDomain)
	restored, _ := added.RemoveRedirect(testDomain)
	if restored.Render() != original {
		t.Fatalf("unrelated lines changed:\n%q\nwant\n%q", restored.Render(), original)
	}
}

func TestCommentOnlyMentionIsNotARedirect(t *testing.T) {
	testlog.Start(t)
	table := Parse("# 127.0.0.1 " + testDomain + "\n")

	if table.HasRedirect(testDomain) {
		t.Fatalf("comment-only mention must not count as modified")
	}
	if table.HasExactRedirect(testDomain) {
		t.Fatalf("comment-only mention must not satisfy the exact check")
	}
	out, added := table.AddRedirect(testDomain)
	if !added {
		t.Fatalf("add must still append the canonical line")
	}
	if !out.HasRedirect(testDomain) {
		t.Fatalf("canonical line missing after add: %q", out.Render())
	}
}

func TestHasExactRedirectIgnoresVariants(t *testing.T) {
	testlog.Start(t)
	table := Parse("127.0.0.1   " + testDomain + " # pinned\n")

	if !table.HasRedirect(testDomain) {
		t.Fatalf("variant line should report as modified")
	}
	if table.HasExactRedirect(testDomain) {
		t.Fatalf("variant line must not satisfy the exact check")
	}
}

func TestLoadMissingFile(t *testing.T) {
	testlog.Start(t)
	if _, err := Load(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatalf("expected read error for missing file")
	}
}

func TestWriteRoundTrip(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "hosts")
	if err := os.WriteFile(path, []byte("127.0.0.1 localhost\n"), 0o644); err != nil {
		t.Fatalf("seed hosts: %v", err)
	}

	table, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	updated, _ := table.AddRedirect(testDomain)
	if err := Write(path, updated); err != nil {
		t.Fatalf("write: %v", err)
	}

	reread, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reread.Render() != updated.Render() {
		t.Fatalf("round trip mismatch: %q vs %q", reread.Render(), updated.Render())
	}
	if !strings.HasSuffix(reread.Render(), "\n") || strings.HasSuffix(reread.Render(), "\n\n") {
		t.Fatalf("expected exactly one trailing newline: %q", reread.Render())
	}
}

func TestWriteUnwritableDirSurfacesError(t *testing.T) {
	testlog.Start(t)
	table := Parse("127.0.0.1 localhost\n")
	if err := Write(filepath.Join(t.TempDir(), "no-such-dir", "hosts"), table); err == nil {
		t.Fatalf("expected write error for unavailable path")
	}
}

func TestEntriesParsing(t *testing.T) {
	testlog.Start(t)
	table := Parse("# header\n127.0.0.1 localhost\ngarbage\n")
	entries := table.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if !entries[0].Comment {
		t.Fatalf("expected comment entry")
	}
	if entries[1].IP != "127.0.0.1" || entries[1].Hostname != "localhost" {
		t.Fatalf("unexpected parse: %+v", entries[1])
	}
	if entries[2].IP != "" || entries[2].Comment {
		t.Fatalf("malformed line should stay raw-only: %+v", entries[2])
	}
}
