package paypal

import (
	"errors"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// AuthAssertion builds the unsigned JWT PayPal expects in PayPal-Auth-Assertion
// when a partner acts on behalf of a merchant.
func AuthAssertion(clientID, payerID string) (string, error) {
	if strings.TrimSpace(clientID) == "" {
		return "", errClientIDRequired
	}
	if strings.TrimSpace(payerID) == "" {
		return "", errors.New("paypal payer id is required for auth assertion")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"iss":      clientID,
		"payer_id": payerID,
	})
	return token.SignedString(jwt.UnsafeAllowNoneSignatureType)
}
