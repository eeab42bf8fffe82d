package check

import (
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		status   Status
		shareQty int
	}{
		{
			name:     "allotted with quantity",
			text:     "Congratulation Alloted !!! Alloted quantity : 10",
			status:   StatusAllotted,
			shareQty: 10,
		},
		{
			name:   "not allotted",
			text:   "Sorry, not alloted for the entered BOID.",
			status: StatusNotAllotted,
		},
		{
			name:   "captcha rejection",
			text:   "Invalid Captcha Provided. Please try again",
			status: StatusCaptchaError,
		},
		{
			name:   "captcha mismatch wording",
			text:   "Captcha MISMATCH, please re-enter",
			status: StatusCaptchaError,
		},
		{
			name:   "captcha wrong wording",
			text:   "The text you entered was wrong",
			status: StatusCaptchaError,
		},
		{
			name:     "allotted without quantity",
			text:     "Congratulations! You have been allotted.",
			status:   StatusAllotted,
			shareQty: 0,
		},
		{
			name:     "shares keyword",
			text:     "Allotted shares: 25",
			status:   StatusAllotted,
			shareQty: 25,
		},
		{
			name:   "unclassifiable",
			text:   "Service temporarily unavailable",
			status: StatusError,
		},
		{
			name:   "empty",
			text:   "",
			status: StatusError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.text)
			if got.Status != tt.status {
				t.Errorf("Classify(%q).Status = %s, want %s", tt.text, got.Status, tt.status)
			}
			if got.ShareQty != tt.shareQty {
				t.Errorf("Classify(%q).ShareQty = %d, want %d", tt.text, got.ShareQty, tt.shareQty)
			}
		})
	}
}

// The exact allotment template must round-trip any quantity.
func TestClassify_QuantityRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 10, 100, 2500, 99999} {
		text := fmt.Sprintf("Congratulation Alloted !!! Alloted quantity : %d", n)
		got := Classify(text)
		if got.Status != StatusAllotted || got.ShareQty != n {
			t.Errorf("quantity %d: got status=%s qty=%d", n, got.Status, got.ShareQty)
		}
	}
}

// Classify is pure: identical input, identical output.
func TestClassify_Deterministic(t *testing.T) {
	inputs := []string{
		"Congratulation Alloted !!! Alloted quantity : 10",
		"Sorry, not alloted for the entered BOID.",
		"Invalid Captcha Provided. Please try again",
		"garbage",
	}
	for _, in := range inputs {
		first := Classify(in)
		for i := 0; i < 50; i++ {
			if got := Classify(in); got != first {
				t.Fatalf("Classify(%q) not deterministic: %+v vs %+v", in, first, got)
			}
		}
	}
}

func TestClassify_CaptchaWinsOverAllotment(t *testing.T) {
	// A page that still shows an old allotment message alongside a fresh
	// captcha rejection must retry, not record the stale result.
	got := Classify("Alloted quantity : 10\nInvalid Captcha Provided. Please try again")
	if got.Status != StatusCaptchaError {
		t.Errorf("got %s, want %s", got.Status, StatusCaptchaError)
	}
}

func TestClassify_ErrorDetailBounded(t *testing.T) {
	long := make([]byte, 5000)
	for i := range long {
		long[i] = 'x'
	}
	got := Classify(string(long))
	if got.Status != StatusError {
		t.Fatalf("got %s, want %s", got.Status, StatusError)
	}
	if len(got.Detail) > maxErrorDetail {
		t.Errorf("detail length %d exceeds bound %d", len(got.Detail), maxErrorDetail)
	}
}

func TestValidBOID(t *testing.T) {
	valid := []string{"1301010000123456", "1399999999999999"}
	invalid := []string{"", "12345", "1401010000123456", "13010100001234567", "130101000012345a", "0301010000123456"}

	for _, s := range valid {
		if !ValidBOID(s) {
			t.Errorf("ValidBOID(%q) = false, want true", s)
		}
	}
	for _, s := range invalid {
		if ValidBOID(s) {
			t.Errorf("ValidBOID(%q) = true, want false", s)
		}
	}
}
