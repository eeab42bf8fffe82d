package check

import (
	"fmt"
	"strconv"
)

// Selectors on the CDSC allotment-result page. The page is an Angular app;
// these are the only stable hooks it exposes.
const (
	selCompanyInput    = "#companyShare input"
	selCompanyClear    = ".ng-clear-wrapper"
	selCompanyOption   = ".ng-option"
	selCaptchaImage    = `img[alt="captcha"]`
	selCaptchaRefresh  = `.captcha-reload, a[title="Refresh Captcha"], img[alt="captcha"] ~ a`
	selBOIDInput       = "#boid"
	selCaptchaInput    = "#userCaptcha"
	selSubmitButton    = `button[type="submit"]`
)

// Timing constants for the injected scripts, in milliseconds. The page's own
// reactive framework needs settle time after synthetic input events.
const (
	companyDropdownSettleMs = 1000
	companyOptionSettleMs   = 500
	inputSettleMs           = 300
	submitSettleMs          = 2500
	refreshPollIntervalMs   = 150
	refreshPollAttempts     = 20
)

// postFn is the well-known function every rendering surface must install
// before scripts run. It receives one JSON-encoded message object.
const postFn = "window.__ipocheckPost"

// SelectCompanyScript returns the instruction that picks companyName in the
// share dropdown. Fire-and-forget: no message is posted back; the caller
// honors a fixed settle delay instead.
func SelectCompanyScript(companyName string) string {
	name := strconv.Quote(companyName)
	return fmt.Sprintf(`
(async function selectCompany() {
  const sleep = (ms) => new Promise((r) => setTimeout(r, ms));
  try {
    const clear = document.querySelector(%q);
    if (clear) { clear.click(); await sleep(300); }

    const input = document.querySelector(%q);
    if (!input) throw new Error('company dropdown not found');
    input.focus();
    input.click();
    input.value = %s;
    input.dispatchEvent(new Event('input', { bubbles: true }));
    await sleep(%d);

    const options = document.querySelectorAll(%q);
    const match = Array.from(options).find((o) => o.innerText.includes(%s));
    if (!match) throw new Error('company not found in dropdown');
    match.click();
    await sleep(%d);
  } catch (err) {
    console.error('selectCompany: ' + err.message);
  }
})();
`, selCompanyClear, selCompanyInput, name, companyDropdownSettleMs,
		selCompanyOption, name, companyOptionSettleMs)
}

// ExtractCaptchaScript returns the instruction that captures the current
// captcha as a pixel-exact blob and posts it back tagged with boid.
//
// When refresh is true the in-page refresh affordance is triggered and the
// script polls until the image source actually changes, bounded; it never
// reloads the page, so already-entered session state survives. If no change
// is observed within the bound, whatever image is present is used.
func ExtractCaptchaScript(boid string, refresh bool) string {
	return fmt.Sprintf(`
(async function extractCaptcha() {
  const sleep = (ms) => new Promise((r) => setTimeout(r, ms));
  const boid = %q;
  try {
    const img = document.querySelector('%s');
    if (!img) throw new Error('captcha image not found');

    if (%t) {
      const prevSrc = img.src;
      const refreshCtl = document.querySelector(%q);
      if (refreshCtl) {
        refreshCtl.click();
        for (let i = 0; i < %d; i++) {
          await sleep(%d);
          if (img.src && img.src !== prevSrc) break;
        }
      }
    }

    if (!img.complete) {
      await new Promise((r) => { img.onload = r; img.onerror = r; });
    }

    const canvas = document.createElement('canvas');
    canvas.width = img.naturalWidth;
    canvas.height = img.naturalHeight;
    const ctx = canvas.getContext('2d');
    ctx.imageSmoothingEnabled = false;
    ctx.drawImage(img, 0, 0);

    const dataURL = canvas.toDataURL('image/png');
    const base64 = dataURL.split(',')[1];
    if (!base64) throw new Error('failed to encode captcha image');

    %s(JSON.stringify({
      type: 'CAPTCHA_IMAGE_READY',
      boid: boid,
      imageBase64: base64,
      imageSize: Math.floor(base64.length * 3 / 4),
      mimeType: 'image/png',
    }));
  } catch (err) {
    %s(JSON.stringify({
      type: 'BULK_CHECK_RESULT',
      boid: boid,
      status: 'error',
      error: err.message,
    }));
  }
})();
`, boid, selCaptchaImage, refresh, selCaptchaRefresh,
		refreshPollAttempts, refreshPollIntervalMs, postFn, postFn)
}

// SubmitScript returns the instruction that fills the BOID and captcha
// fields, submits the form, and posts back the aggregated visible page text.
// Input and change events are dispatched so the page's client-side
// validation registers the values. No structured DOM parsing happens here;
// classification works on text alone.
func SubmitScript(boid, captchaText string) string {
	return fmt.Sprintf(`
(async function submitCheck() {
  const sleep = (ms) => new Promise((r) => setTimeout(r, ms));
  const boid = %q;
  const fill = (el, value) => {
    el.value = value;
    el.dispatchEvent(new Event('input', { bubbles: true }));
    el.dispatchEvent(new Event('change', { bubbles: true }));
  };
  try {
    const boidInput = document.querySelector(%q);
    if (!boidInput) throw new Error('BOID input not found');
    fill(boidInput, boid);

    const captchaInput = document.querySelector(%q);
    if (!captchaInput) throw new Error('captcha input not found');
    fill(captchaInput, %s);

    await sleep(%d);

    const submit = document.querySelector('%s');
    if (!submit) throw new Error('submit button not found');
    submit.click();

    await sleep(%d);

    const visible = [];
    for (const el of document.body.querySelectorAll('*')) {
      if (el.children.length > 0) continue;
      const style = window.getComputedStyle(el);
      const rect = el.getBoundingClientRect();
      if (style.display === 'none' || style.visibility === 'hidden' ||
          style.opacity === '0' || rect.width === 0 || rect.height === 0) continue;
      const text = (el.innerText || '').trim();
      if (text) visible.push(text);
    }

    %s(JSON.stringify({
      type: 'BULK_CHECK_RESULT',
      boid: boid,
      status: 'ok',
      message: visible.join('\n'),
    }));
  } catch (err) {
    %s(JSON.stringify({
      type: 'BULK_CHECK_RESULT',
      boid: boid,
      status: 'error',
      error: err.message,
    }));
  }
})();
`, boid, selBOIDInput, selCaptchaInput, strconv.Quote(captchaText),
		inputSettleMs, selSubmitButton, submitSettleMs, postFn, postFn)
}
