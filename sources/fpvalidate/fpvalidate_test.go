package fpvalidate

import "testing"

func TestIsPNGDataURL(t *testing.T) {
	if !IsPNGDataURL("data:image/png;base64,iVBORw0KGgo=") {
		t.Fatal("expected valid PNG data-url to match")
	}
	if IsPNGDataURL("data:image/jpeg;base64,abcd") {
		t.Fatal("expected jpeg data-url to be rejected")
	}
	if IsPNGDataURL("") {
		t.Fatal("expected empty string to be rejected")
	}
}

func TestIsNarrowBracket(t *testing.T) {
	if !IsNarrowBracket(1275, 1285, 8192, 10) {
		t.Fatal("expected a 10-wide bracket around 1280 to be valid")
	}
	if IsNarrowBracket(1275, 1300, 8192, 10) {
		t.Fatal("expected a too-wide bracket to be rejected")
	}
	if IsNarrowBracket(-1, 10, 8192, 10) {
		t.Fatal("expected a negative low bound to be rejected")
	}
	if IsNarrowBracket(5, 3, 8192, 10) {
		t.Fatal("expected lo > hi to be rejected")
	}
}

func TestIsBatteryLevelMultiple(t *testing.T) {
	if !IsBatteryLevelMultiple(0.65, 0.05) {
		t.Fatal("expected 0.65 to be a multiple of 0.05")
	}
	if IsBatteryLevelMultiple(0.67, 0.05) {
		t.Fatal("expected 0.67 to not be a multiple of 0.05")
	}
}

func TestIsPrivateIPv4InRange(t *testing.T) {
	for _, addr := range []string{"10.0.0.1", "172.16.5.5", "192.168.1.1", "169.254.3.3"} {
		if !IsPrivateIPv4InRange(addr) {
			t.Errorf("expected %s to be classified as private", addr)
		}
	}
	for _, addr := range []string{"8.8.8.8", "203.0.113.1", "not-an-ip"} {
		if IsPrivateIPv4InRange(addr) {
			t.Errorf("expected %s to not be classified as private", addr)
		}
	}
}

func TestIsNotLinkLocalIPv6(t *testing.T) {
	if IsNotLinkLocalIPv6("fe80::1") {
		t.Fatal("expected fe80:: to be rejected as link-local")
	}
	if !IsNotLinkLocalIPv6("fd12:3456::1") {
		t.Fatal("expected fd12:: to be accepted as non-link-local")
	}
	if IsNotLinkLocalIPv6("10.0.0.1") {
		t.Fatal("expected an IPv4 address to be rejected")
	}
}
