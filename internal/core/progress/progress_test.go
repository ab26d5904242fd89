package progress

import "testing"

func TestDescribeStreams(t *testing.T) {
	testCases := []struct {
		name     string
		done     int
		inFlight []float64
		want     string
	}{
		{name: "idle", want: "Decoding... 0 done"},
		{name: "two streams", done: 1, inFlight: []float64{0.25, 1.2}, want: "Decoding... 1 done [ 25%] [100%]"},
		{name: "capped", done: 0, inFlight: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6},
			want: "Decoding... 0 done [ 10%] [ 20%] [ 30%] [ 40%] +2"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := DescribeStreams("Decoding... ", tc.done, tc.inFlight); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}
