package registry

import "testing"

func TestCacheRoundTrip(t *testing.T) {
	c, err := NewCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}

	if _, ok, err := c.Get("chalk"); err != nil || ok {
		t.Fatalf("Get on empty cache = ok=%v err=%v, want ok=false err=nil", ok, err)
	}

	doc := Document{}
	doc.DistTags.Latest = "1.0.0"
	doc.Versions = map[string]VersionMeta{"1.0.0": {}}
	if err := c.Put("@scope/name", doc); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := c.Get("@scope/name")
	if err != nil || !ok {
		t.Fatalf("Get after Put = ok=%v err=%v, want ok=true err=nil", ok, err)
	}
	if got.DistTags.Latest != "1.0.0" {
		t.Errorf("got DistTags.Latest = %q, want 1.0.0", got.DistTags.Latest)
	}
}
