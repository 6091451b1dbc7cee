package renderq

import "testing"

func TestFrameRingAdvance(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5} {
		r := &frameRing{slots: make([]frameSlot, n)}
		for k := 1; k <= 3*n+1; k++ {
			r.advance()
			if r.current != k%n {
				t.Fatalf("n=%d: after %d advances current = %d, want %d", n, k, r.current, k%n)
			}
		}
		if r.len() != n {
			t.Errorf("len() = %d, want %d", r.len(), n)
		}
	}
}

func TestFrameStateString(t *testing.T) {
	tests := []struct {
		s    frameState
		want string
	}{
		{frameIdle, "Idle"},
		{frameRecording, "Recording"},
		{frameBound, "Bound"},
		{frameSubmitted, "Submitted"},
		{frameState(99), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("frameState(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}

func TestPoolSizes(t *testing.T) {
	bindings := []DescriptorBinding{
		{Type: DescriptorTypeUniformBuffer},
		{Type: DescriptorTypeCombinedImageSampler, Count: 4},
		{Type: DescriptorTypeUniformBuffer},
	}
	got := poolSizes(bindings, 3)
	want := []DescriptorPoolSize{
		{Type: DescriptorTypeUniformBuffer, Count: 6},
		{Type: DescriptorTypeCombinedImageSampler, Count: 12},
	}
	if len(got) != len(want) {
		t.Fatalf("poolSizes() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("poolSizes()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
