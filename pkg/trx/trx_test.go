package trx

import (
	"context"
	"net"
	"reflect"
	"testing"
	"time"

	"github.com/norasector/faketrx/pkg/gsm"
	"github.com/norasector/faketrx/pkg/gsm/sbit"
	"github.com/norasector/faketrx/pkg/trx/datamsg"
	"github.com/norasector/faketrx/pkg/trx/link"
	"github.com/norasector/faketrx/pkg/trx/sim"
	"github.com/norasector/faketrx/pkg/util"
)

func TestTRXForwardsBursts(t *testing.T) {
	l1, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	defer l1.Close()

	l, err := link.New("127.0.0.1:0", l1.LocalAddr().String())
	if err != nil {
		t.Fatal(err)
	}

	metrics := &util.PointRecorder{}
	trx, err := NewTRX(l, sim.NewChannel(sim.WithRSSI(-90, 0), sim.WithToA(0, 0)),
		WithInfluxDB(metrics),
		WithStatsInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("NewTRX() error = %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- trx.Start(context.Background())
	}()

	ubits := make(datamsg.Burst, gsm.BurstLength)
	for i := range ubits {
		ubits[i] = byte((i / 3) & 1)
	}

	// A burst one byte longer than normal decodes but cannot be forwarded.
	odd, err := datamsg.NewUplink(9, 1, 1, ubits).Encode()
	if err != nil {
		t.Fatal(err)
	}
	odd = append(odd, 0)
	if _, err := l1.WriteToUDP(odd, l.LocalAddr()); err != nil {
		t.Fatal(err)
	}

	raw, err := datamsg.NewUplink(777, 4, 10, ubits).Encode()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l1.WriteToUDP(raw, l.LocalAddr()); err != nil {
		t.Fatal(err)
	}

	buf := make([]byte, 1024)
	l1.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := l1.ReadFromUDP(buf)
	if err != nil {
		t.Fatalf("L1 read: %v", err)
	}

	dl := &datamsg.Downlink{}
	if err := dl.Decode(buf[:n]); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if fn, _ := dl.FN(); fn != 777 {
		t.Errorf("FN() = %d, want 777", fn)
	}
	if tn, _ := dl.TN(); tn != 4 {
		t.Errorf("TN() = %d, want 4", tn)
	}
	if rssi, _ := dl.RSSI(); rssi != -90 {
		t.Errorf("RSSI() = %d, want -90", rssi)
	}
	if got := sbit.SbitToUbit(sbit.FromBytes(dl.Burst())); !reflect.DeepEqual(got, []byte(ubits)) {
		t.Errorf("hard decisions of the downlink burst differ from the uplink burst")
	}

	deadline := time.Now().Add(2 * time.Second)
	for metrics.Count("trx.stats") == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if metrics.Count("trx.stats") == 0 {
		t.Errorf("no trx.stats points written")
	}

	if err := trx.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Start() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("TRX did not stop")
	}

	if stats := l.Stats(); stats.Received != 2 || stats.Sent != 1 {
		t.Errorf("Stats() = %+v, want 2 received and 1 sent", stats)
	}
}

func TestNewTRXOptions(t *testing.T) {
	if _, err := NewTRX(nil, sim.NewChannel()); err == nil {
		t.Errorf("NewTRX() without a link succeeded")
	}

	l, err := link.New("127.0.0.1:0", "127.0.0.1:1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewTRX(l, sim.NewChannel(), WithStatsInterval(-time.Second)); err == nil {
		t.Errorf("NewTRX() with a negative stats interval succeeded")
	}
}
