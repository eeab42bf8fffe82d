package check

import (
	"strings"
	"testing"
)

func TestSelectCompanyScript(t *testing.T) {
	script := SelectCompanyScript("Sanima Reliance Life Insurance")

	for _, want := range []string{
		selCompanyInput,
		selCompanyOption,
		`"Sanima Reliance Life Insurance"`,
	} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q", want)
		}
	}
	if strings.Contains(script, postFn) {
		t.Error("company selection must not post a message back")
	}
}

func TestSelectCompanyScript_EscapesQuotes(t *testing.T) {
	script := SelectCompanyScript(`ACME "Special" Hydropower`)
	if !strings.Contains(script, `ACME \"Special\" Hydropower`) {
		t.Error("quotes in company name not escaped")
	}
}

func TestExtractCaptchaScript(t *testing.T) {
	boid := "1301010000123456"

	fresh := ExtractCaptchaScript(boid, false)
	refreshed := ExtractCaptchaScript(boid, true)

	for name, script := range map[string]string{"fresh": fresh, "refreshed": refreshed} {
		for _, want := range []string{
			boid,
			selCaptchaImage,
			"CAPTCHA_IMAGE_READY",
			postFn,
			"imageSmoothingEnabled = false",
			"toDataURL('image/png')",
		} {
			if !strings.Contains(script, want) {
				t.Errorf("%s script missing %q", name, want)
			}
		}
		// Failures come back as result messages so the controller's single
		// wait can observe them.
		if !strings.Contains(script, "BULK_CHECK_RESULT") {
			t.Errorf("%s script has no error path", name)
		}
		// The captcha is refreshed in place; a reload would wipe form state.
		if strings.Contains(script, "location.reload") {
			t.Errorf("%s script reloads the page", name)
		}
	}

	if !strings.Contains(refreshed, "if (true)") {
		t.Error("refreshed script does not trigger the refresh branch")
	}
	if !strings.Contains(fresh, "if (false)") {
		t.Error("fresh script triggers the refresh branch")
	}
}

func TestSubmitScript(t *testing.T) {
	boid := "1301010000123456"
	script := SubmitScript(boid, "48291")

	for _, want := range []string{
		boid,
		`"48291"`,
		selBOIDInput,
		selCaptchaInput,
		selSubmitButton,
		"BULK_CHECK_RESULT",
		postFn,
		"new Event('input'",
		"new Event('change'",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q", want)
		}
	}
}
