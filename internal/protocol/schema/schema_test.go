package schema

import (
	"testing"

	"github.com/danmuck/ascmdctl/internal/testutil/testlog"
)

func TestRecordTagsAreUnique(t *testing.T) {
	testlog.Start(t)
	for _, rec := range []Record{Stat, Info, Mnt, Size, Error, Md5sum} {
		seen := make(map[uint8]string)
		for _, f := range rec.Fields {
			if f.Tag == 0 {
				t.Fatalf("%s.%s uses reserved tag 0", rec.Name, f.Name)
			}
			if prev, ok := seen[f.Tag]; ok {
				t.Fatalf("%s: tag %d shared by %s and %s", rec.Name, f.Tag, prev, f.Name)
			}
			seen[f.Tag] = f.Name
		}
	}
}

func TestLookup(t *testing.T) {
	testlog.Start(t)
	f, ok := Stat.Lookup(StatMTime)
	if !ok || f.Name != "mtime" || f.Kind != KindU64 {
		t.Fatalf("unexpected stat mtime field: %+v ok=%v", f, ok)
	}
	if _, ok := Mnt.Lookup(10); ok {
		t.Fatalf("expected mnt tag 10 to be unknown")
	}
}

func TestResultNames(t *testing.T) {
	testlog.Start(t)
	if ResultName(ResultDf) != "df" {
		t.Fatalf("expected df, got %q", ResultName(ResultDf))
	}
	if ResultName(42) != "tag(42)" {
		t.Fatalf("expected tag(42), got %q", ResultName(42))
	}
	for tag := uint8(1); tag <= 9; tag++ {
		if !KnownResult(tag) {
			t.Fatalf("expected tag %d to be a known result", tag)
		}
	}
	if KnownResult(0) || KnownResult(10) {
		t.Fatalf("expected 0 and 10 to be unknown")
	}
}
