package introspect

import (
	"crypto/tls"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	http3 "github.com/quic-go/quic-go/http3"

	"github.com/omnilisp-lang/omnilisp/internal/memcore/component"
	"github.com/omnilisp-lang/omnilisp/internal/memcore/region"
)

func TestServerServesSnapshotOverHTTP3(t *testing.T) {
	r := region.Create()
	ref := region.NewRef(nil, r)
	defer ref.Release()

	pool := component.NewPool()

	source := func() ([]*region.Region, []*component.Pool) {
		return []*region.Region{r}, []*component.Pool{pool}
	}

	srv, err := New("127.0.0.1:0", source)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	addr, err := srv.Start()
	if err != nil {
		t.Skip("http3 not supported in this environment:", err)
	}
	defer srv.srv.Close()

	cli := &http.Client{
		Transport: &http3.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}},
		Timeout:   2 * time.Second,
	}

	resp, err := cli.Get("https://" + addr + "/snapshot")
	if err != nil {
		t.Skip("http3 dial failed in this environment:", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	var snap Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		t.Fatalf("Unmarshal: %v\nbody: %s", err, body)
	}

	if len(snap.Regions) != 1 || !snap.Regions[0].Alive {
		t.Fatalf("expected one alive region in snapshot, got %+v", snap)
	}
}
