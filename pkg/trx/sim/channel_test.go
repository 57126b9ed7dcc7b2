package sim

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/norasector/faketrx/pkg/gsm"
	"github.com/norasector/faketrx/pkg/trx/datamsg"
)

func hardBurst() datamsg.Burst {
	b := make(datamsg.Burst, gsm.BurstLength)
	for i := range b {
		b[i] = byte(i % 2)
	}
	return b
}

func TestForward(t *testing.T) {
	ch := NewChannel(WithRSSI(-75, 0), WithToA(1.25, 0))

	dl, err := ch.Forward(datamsg.NewUplink(500, 3, 20, hardBurst()))
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}

	if fn, _ := dl.FN(); fn != 500 {
		t.Errorf("FN() = %d, want 500", fn)
	}
	if tn, _ := dl.TN(); tn != 3 {
		t.Errorf("TN() = %d, want 3", tn)
	}
	if rssi, _ := dl.RSSI(); rssi != -75 {
		t.Errorf("RSSI() = %d, want -75", rssi)
	}
	if toa, _ := dl.ToA(); toa != 1.25 {
		t.Errorf("ToA() = %f, want 1.25", toa)
	}

	want := make(datamsg.Burst, gsm.BurstLength)
	for i := range want {
		if i%2 == 1 {
			want[i] = 0x81 // -127
		} else {
			want[i] = 0x7f
		}
	}
	if !reflect.DeepEqual(dl.Burst(), want) {
		t.Errorf("Burst() = % x, want % x", dl.Burst()[:4], want[:4])
	}
	if !dl.Validate() {
		t.Errorf("forwarded downlink does not validate")
	}
}

func TestForwardClamps(t *testing.T) {
	tests := []struct {
		name     string
		rssi     float64
		toa      float64
		wantRSSI int
		wantToA  float64
	}{
		{"strong", -10, 50, datamsg.RSSIMax, datamsg.ToAMax},
		{"weak", -200, -50, datamsg.RSSIMin, datamsg.ToAMin},
		{"rounded", -80.6, 0, -81, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := NewChannel(WithRSSI(tt.rssi, 0), WithToA(tt.toa, 0))
			dl, err := ch.Forward(datamsg.NewUplink(1, 1, 1, hardBurst()))
			if err != nil {
				t.Fatalf("Forward() error = %v", err)
			}
			if rssi, _ := dl.RSSI(); rssi != tt.wantRSSI {
				t.Errorf("RSSI() = %d, want %d", rssi, tt.wantRSSI)
			}
			if toa, _ := dl.ToA(); toa != tt.wantToA {
				t.Errorf("ToA() = %f, want %f", toa, tt.wantToA)
			}
		})
	}
}

func TestForwardJitterStaysInRange(t *testing.T) {
	ch := NewChannel(WithRSSI(-55, 10), WithToA(9, 3))
	for i := 0; i < 1000; i++ {
		dl, err := ch.Forward(datamsg.NewUplink(int64(i), i%8, 0, hardBurst()))
		if err != nil {
			t.Fatalf("Forward() error = %v", err)
		}
		if !dl.Validate() {
			rssi, _ := dl.RSSI()
			toa, _ := dl.ToA()
			t.Fatalf("downlink out of range: rssi=%d toa=%f", rssi, toa)
		}
	}
}

func TestForwardInvalid(t *testing.T) {
	_, err := NewChannel().Forward(&datamsg.Uplink{})
	if !errors.Is(err, datamsg.ErrValidation) {
		t.Errorf("Forward() error = %v, want ErrValidation", err)
	}
}

func TestForwardNaN(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"toa", WithToA(math.NaN(), 0)},
		{"toa jitter", WithToA(0, math.NaN())},
		{"rssi", WithRSSI(math.NaN(), 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dl, err := NewChannel(tt.opt).Forward(datamsg.NewUplink(1, 1, 1, hardBurst()))
			if !errors.Is(err, datamsg.ErrValidation) {
				t.Errorf("Forward() error = %v, want ErrValidation", err)
			}
			if dl != nil {
				t.Errorf("Forward() returned a downlink")
			}
		})
	}
}
