package redsys

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"motorhome-booking-backend/internal/domain"
)

const (
	TestURL       = "https://sis-t.redsys.es:25443/sis/realizarPago"
	ProductionURL = "https://sis.redsys.es/sis/realizarPago"

	CurrencyEUR        = "978"
	TransactionPayment = "0"
	TransactionPreAuth = "1"
	LanguageSpanish    = "001"

	maxDescriptionLen = 125
)

// MerchantParameters is the DS_MERCHANT_* payload of the payment form.
type MerchantParameters struct {
	Amount             string `json:"DS_MERCHANT_AMOUNT"`
	Order              string `json:"DS_MERCHANT_ORDER"`
	MerchantCode       string `json:"DS_MERCHANT_MERCHANTCODE"`
	Currency           string `json:"DS_MERCHANT_CURRENCY"`
	TransactionType    string `json:"DS_MERCHANT_TRANSACTIONTYPE"`
	Terminal           string `json:"DS_MERCHANT_TERMINAL"`
	MerchantURL        string `json:"DS_MERCHANT_MERCHANTURL"`
	URLOK              string `json:"DS_MERCHANT_URLOK"`
	URLKO              string `json:"DS_MERCHANT_URLKO"`
	ProductDescription string `json:"DS_MERCHANT_PRODUCTDESCRIPTION"`
	ConsumerLanguage   string `json:"DS_MERCHANT_CONSUMERLANGUAGE"`
	MerchantName       string `json:"DS_MERCHANT_MERCHANTNAME,omitempty"`
	Titular            string `json:"DS_MERCHANT_TITULAR,omitempty"`
	MerchantData       string `json:"DS_MERCHANT_MERCHANTDATA,omitempty"`
}

// Notification is the decoded Ds_MerchantParameters of a callback.
type Notification struct {
	Date              string `json:"Ds_Date"`
	Hour              string `json:"Ds_Hour"`
	Amount            string `json:"Ds_Amount"`
	Currency          string `json:"Ds_Currency"`
	Order             string `json:"Ds_Order"`
	MerchantCode      string `json:"Ds_MerchantCode"`
	Terminal          string `json:"Ds_Terminal"`
	Response          string `json:"Ds_Response"`
	TransactionType   string `json:"Ds_TransactionType"`
	SecurePayment     string `json:"Ds_SecurePayment"`
	AuthorisationCode string `json:"Ds_AuthorisationCode"`
	MerchantData      string `json:"Ds_MerchantData"`
	CardCountry       string `json:"Ds_Card_Country"`
	CardType          string `json:"Ds_Card_Type"`
}

// AmountCents parses Ds_Amount, which is always in cents.
func (n *Notification) AmountCents() (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(n.Amount), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid Ds_Amount %q: %w", n.Amount, err)
	}
	return v, nil
}

// Status maps Ds_Response to a payment record status.
func (n *Notification) Status() domain.PaymentRecordStatus {
	return StatusForResponse(n.Response)
}

// StatusForResponse: 0-99 authorised, 900 cancelled by the customer,
// anything else (including unparsable codes) is an error.
func StatusForResponse(code string) domain.PaymentRecordStatus {
	c, err := strconv.Atoi(strings.TrimSpace(code))
	if err != nil {
		return domain.PaymentRecordError
	}
	switch {
	case c >= 0 && c <= 99:
		return domain.PaymentRecordAuthorized
	case c == 900:
		return domain.PaymentRecordCancelled
	default:
		return domain.PaymentRecordError
	}
}

var responseMessages = map[string]string{
	"0000": "Transaction authorised",
	"0900": "Refund or confirmation authorised",
	"0101": "Card expired",
	"0102": "Card blocked or under fraud suspicion",
	"0104": "Operation not allowed for this card or terminal",
	"0106": "PIN attempts exceeded",
	"0116": "Insufficient funds",
	"0118": "Card not registered",
	"0125": "Card not effective",
	"0129": "Wrong security code",
	"0180": "Card not served",
	"0184": "Cardholder authentication failed",
	"0190": "Declined by issuer",
	"0191": "Wrong expiry date",
	"0904": "Merchant not registered",
	"0909": "System error",
	"0912": "Issuer unavailable",
	"0913": "Duplicate order",
	"0944": "Wrong session",
	"0950": "Refund not allowed",
	"9915": "Payment cancelled by the customer",
}

// ResponseMessage describes a Ds_Response code.
func ResponseMessage(code string) string {
	if c, err := strconv.Atoi(strings.TrimSpace(code)); err == nil {
		if msg, ok := responseMessages[fmt.Sprintf("%04d", c)]; ok {
			return msg
		}
	}
	return fmt.Sprintf("Unknown response (%s)", code)
}

// OrderNumber builds a 12 digit order: MMDDhhmmss followed by the first two
// millisecond digits. Redsys requires the first four characters numeric.
func OrderNumber(now time.Time) string {
	now = now.UTC()
	ms := now.Nanosecond() / int(time.Millisecond)
	return fmt.Sprintf("%s%02d", now.Format("0102150405"), ms/10)
}

// TruncateDescription keeps the product description within the gateway limit.
func TruncateDescription(s string) string {
	r := []rune(s)
	if len(r) > maxDescriptionLen {
		return string(r[:maxDescriptionLen])
	}
	return s
}
