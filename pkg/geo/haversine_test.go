package geo

import (
	"math"
	"testing"
)

func TestHaversine(t *testing.T) {
	tests := []struct {
		name             string
		a, b             LatLng
		wantMeters       float64
		tolerancePercent float64
	}{
		{
			name:             "Raffles Place to Changi Airport",
			a:                LatLng{Lat: 1.2830, Lng: 103.8513},
			b:                LatLng{Lat: 1.3644, Lng: 103.9915},
			wantMeters:       18_023,
			tolerancePercent: 1,
		},
		{
			name:       "same point",
			a:          LatLng{Lat: 1.3521, Lng: 103.8198},
			b:          LatLng{Lat: 1.3521, Lng: 103.8198},
			wantMeters: 0,
		},
		{
			name:             "London to Paris",
			a:                LatLng{Lat: 51.5074, Lng: -0.1278},
			b:                LatLng{Lat: 48.8566, Lng: 2.3522},
			wantMeters:       343_500,
			tolerancePercent: 1,
		},
		{
			name:             "about 100m north",
			a:                LatLng{Lat: 1.3521, Lng: 103.8198},
			b:                LatLng{Lat: 1.3530, Lng: 103.8198},
			wantMeters:       100,
			tolerancePercent: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HaversineLatLng(tt.a, tt.b)
			if tt.wantMeters == 0 {
				if got != 0 {
					t.Errorf("expected 0, got %f", got)
				}
				return
			}
			diff := math.Abs(got-tt.wantMeters) / tt.wantMeters * 100
			if diff > tt.tolerancePercent {
				t.Errorf("Haversine = %f m, want ~%f m (diff %.1f%%)", got, tt.wantMeters, diff)
			}
			if back := HaversineLatLng(tt.b, tt.a); math.Abs(back-got) > 1e-6 {
				t.Errorf("Haversine not symmetric: %f vs %f", got, back)
			}
		})
	}
}

func TestEquirectangularDist(t *testing.T) {
	lat1, lon1 := 1.3521, 103.8198
	lat2, lon2 := 1.3600, 103.8300

	h := Haversine(lat1, lon1, lat2, lon2)
	e := EquirectangularDist(lat1, lon1, lat2, lon2)

	if diff := math.Abs(h-e) / h * 100; diff > 0.5 {
		t.Errorf("EquirectangularDist differs from Haversine by %.2f%% (haversine=%f, equirect=%f)", diff, h, e)
	}
}

func TestPointToSegmentDist(t *testing.T) {
	tests := []struct {
		name       string
		pLat, pLon float64
		aLat, aLon float64
		bLat, bLon float64
		wantRatio  float64
		maxDistM   float64
	}{
		{
			name: "point at start of segment",
			pLat: 1.3500, pLon: 103.8200,
			aLat: 1.3500, aLon: 103.8200,
			bLat: 1.3600, bLon: 103.8200,
			wantRatio: 0.0,
			maxDistM:  1,
		},
		{
			name: "point at end of segment",
			pLat: 1.3600, pLon: 103.8200,
			aLat: 1.3500, aLon: 103.8200,
			bLat: 1.3600, bLon: 103.8200,
			wantRatio: 1.0,
			maxDistM:  1,
		},
		{
			name: "perpendicular at midpoint",
			pLat: 1.3550, pLon: 103.8210,
			aLat: 1.3500, aLon: 103.8200,
			bLat: 1.3600, bLon: 103.8200,
			wantRatio: 0.5,
			maxDistM:  200,
		},
		{
			name: "degenerate segment",
			pLat: 1.3500, pLon: 103.8210,
			aLat: 1.3500, aLon: 103.8200,
			bLat: 1.3500, bLon: 103.8200,
			wantRatio: 0.0,
			maxDistM:  200,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dist, ratio := PointToSegmentDist(tt.pLat, tt.pLon, tt.aLat, tt.aLon, tt.bLat, tt.bLon)
			if dist > tt.maxDistM {
				t.Errorf("dist = %f m, want <= %f m", dist, tt.maxDistM)
			}
			if math.Abs(ratio-tt.wantRatio) > 0.05 {
				t.Errorf("ratio = %f, want ~%f", ratio, tt.wantRatio)
			}
		})
	}
}

func TestLatLngValid(t *testing.T) {
	tests := []struct {
		ll   LatLng
		want bool
	}{
		{LatLng{Lat: 1.3, Lng: 103.8}, true},
		{LatLng{Lat: -90, Lng: 180}, true},
		{LatLng{Lat: 91, Lng: 0}, false},
		{LatLng{Lat: 0, Lng: -181}, false},
		{LatLng{Lat: math.NaN(), Lng: 0}, false},
		{LatLng{Lat: 0, Lng: math.Inf(1)}, false},
	}
	for _, tt := range tests {
		if got := tt.ll.Valid(); got != tt.want {
			t.Errorf("%+v.Valid() = %v, want %v", tt.ll, got, tt.want)
		}
	}
}

func TestPointRoundTrip(t *testing.T) {
	ll := LatLng{Lat: 1.2830, Lng: 103.8513}
	p := ll.Point()
	if p[0] != ll.Lng || p[1] != ll.Lat {
		t.Fatalf("Point() = %v, want lon/lat order", p)
	}
	if got := FromPoint(p); got != ll {
		t.Errorf("FromPoint(Point()) = %+v, want %+v", got, ll)
	}
}

func TestMetersToDegrees(t *testing.T) {
	dLat, dLng := MetersToDegrees(0, 1000)
	if math.Abs(dLat-0.008993) > 1e-4 {
		t.Errorf("dLat = %f, want ~0.009", dLat)
	}
	if math.Abs(dLng-dLat) > 1e-9 {
		t.Errorf("at the equator dLng (%f) should equal dLat (%f)", dLng, dLat)
	}

	_, dLngNorth := MetersToDegrees(60, 1000)
	if math.Abs(dLngNorth-2*dLat) > 1e-4 {
		t.Errorf("at 60N dLng = %f, want ~%f", dLngNorth, 2*dLat)
	}
}

func BenchmarkHaversine(b *testing.B) {
	for b.Loop() {
		Haversine(1.3521, 103.8198, 1.2905, 103.8520)
	}
}

func BenchmarkEquirectangularDist(b *testing.B) {
	for b.Loop() {
		EquirectangularDist(1.3521, 103.8198, 1.2905, 103.8520)
	}
}

func TestLatLngString(t *testing.T) {
	got := LatLng{Lat: 1.3, Lng: 103.8}.String()
	if got != "1.300000,103.800000" {
		t.Errorf("String = %q", got)
	}
}
