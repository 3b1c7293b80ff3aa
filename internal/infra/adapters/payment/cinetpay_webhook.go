package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// notificationTokenFields is the order CinetPay concatenates form fields
// before signing them into the x-token header.
var notificationTokenFields = []string{
	"cpm_site_id",
	"cpm_trans_id",
	"cpm_trans_date",
	"cpm_amount",
	"cpm_currency",
	"signature",
	"payment_method",
	"cel_phone_num",
	"cpm_phone_prefixe",
	"cpm_language",
	"cpm_version",
	"cpm_payment_config",
	"cpm_page_action",
	"cpm_custom",
	"cpm_designation",
	"cpm_error_message",
}

// NotificationToken computes the expected x-token for a notification form.
func NotificationToken(secret string, form url.Values) string {
	var sb strings.Builder
	for _, f := range notificationTokenFields {
		sb.WriteString(form.Get(f))
	}
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(sb.String()))
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyNotification checks the site id and, when a secret is configured, the
// x-token. The notification is only used to locate a transaction; status
// always comes from Verify.
func (g *CinetPayGateway) VerifyNotification(form url.Values, token string) bool {
	if site := form.Get("cpm_site_id"); site != "" && site != g.siteID {
		return false
	}
	if g.secret == "" {
		return true
	}
	expected := NotificationToken(g.secret, form)
	return hmac.Equal([]byte(strings.ToLower(token)), []byte(expected))
}
