package wire

import (
	"encoding/json"
	"net/url"
)

// Wire field names of the initiation response contract.
const (
	fieldType              = "type"
	fieldURL               = "url"
	fieldResubmit          = "submitPaymentMethodReturnData"
	fieldPaymentMethod     = "paymentMethod"
	fieldResponseDetails   = "responseDetails"
	fieldRedirectData      = "redirectData"
	fieldContinuationToken = "paymentMethodReturnData"
	fieldErrorCode         = "errorCode"
	fieldErrorMessage      = "errorMessage"
	fieldResultCode        = "resultCode"
	fieldResultPayload     = "payload"
)

// Discriminator values of the initiation response contract.
const (
	typeComplete   = "complete"
	typeRedirect   = "redirect"
	typeDetails    = "details"
	typeError      = "error"
	typeValidation = "validation"
)

// Decode parses a raw JSON initiation response into exactly one outcome
// variant. It fails with MISSING_DISCRIMINATOR, UNKNOWN_VARIANT or
// INVALID_FIELD; it never partially succeeds.
func Decode(payload []byte) (InitiationOutcome, error) {
	var m map[string]any
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, NewMissingDiscriminator()
	}
	return DecodeValue(m)
}

// DecodeValue decodes an already-unmarshalled payload. The discriminator is
// extracted first; its value selects the per-variant decode routine.
func DecodeValue(m map[string]any) (InitiationOutcome, error) {
	discriminator, ok := stringField(m, fieldType)
	if !ok {
		return nil, NewMissingDiscriminator()
	}

	switch discriminator {
	case typeComplete:
		return decodeComplete(m)
	case typeRedirect:
		return decodeRedirect(m)
	case typeDetails:
		return decodeDetails(m)
	case typeError, typeValidation:
		return decodeFailed(m)
	default:
		return nil, NewUnknownVariant(discriminator)
	}
}

func decodeComplete(m map[string]any) (InitiationOutcome, error) {
	status, ok := stringField(m, fieldResultCode)
	if !ok {
		return nil, NewInvalidField(fieldResultCode)
	}
	payload, _ := stringField(m, fieldResultPayload)
	return Complete{Result: PaymentResult{
		Status:  ResultStatus(status),
		Payload: payload,
	}}, nil
}

func decodeRedirect(m map[string]any) (InitiationOutcome, error) {
	raw, ok := stringField(m, fieldURL)
	if !ok || raw == "" {
		return nil, NewInvalidField(fieldURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, NewInvalidField(fieldURL)
	}
	return RedirectRequired{
		URL:                 u,
		ResubmitReturnQuery: coerceBool(m[fieldResubmit]),
	}, nil
}

func decodeDetails(m map[string]any) (InitiationOutcome, error) {
	// The nested method mapping is tolerant: a missing mapping or missing
	// "type" key yields an empty method type, not an error.
	methodType := ""
	if method, ok := m[fieldPaymentMethod].(map[string]any); ok {
		methodType, _ = stringField(method, fieldType)
	}

	rawDetails, ok := m[fieldResponseDetails].([]any)
	if !ok {
		return nil, NewInvalidField(fieldResponseDetails)
	}
	details := make([]DetailField, 0, len(rawDetails))
	for _, entry := range rawDetails {
		fields, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		key, _ := stringField(fields, "key")
		kind, _ := stringField(fields, "type")
		details = append(details, DetailField{
			Key:      key,
			Type:     kind,
			Optional: coerceBool(fields["optional"]),
		})
	}

	redirectData, ok := stringMap(m[fieldRedirectData])
	if !ok {
		return nil, NewInvalidField(fieldRedirectData)
	}

	token, ok := stringField(m, fieldContinuationToken)
	if !ok {
		return nil, NewInvalidField(fieldContinuationToken)
	}

	return DetailsRequired{
		MethodType:          methodType,
		RequestedDetails:    details,
		ResubmitReturnQuery: coerceBool(m[fieldResubmit]),
		RedirectParameters:  redirectData,
		ContinuationToken:   token,
	}, nil
}

func decodeFailed(m map[string]any) (InitiationOutcome, error) {
	code, ok := stringField(m, fieldErrorCode)
	if !ok {
		return nil, NewInvalidField(fieldErrorCode)
	}
	message, ok := stringField(m, fieldErrorMessage)
	if !ok {
		return nil, NewInvalidField(fieldErrorMessage)
	}
	return Failed{Code: code, Message: message}, nil
}

func stringField(m map[string]any, key string) (string, bool) {
	s, ok := m[key].(string)
	return s, ok
}

// coerceBool normalizes the wire's boolean encoding quirk: the value may be
// a genuine boolean or the string "true"/"false" (case-sensitive). Absence
// or any other representation yields false and is never an error.
func coerceBool(v any) bool {
	switch value := v.(type) {
	case bool:
		return value
	case string:
		return value == "true"
	default:
		return false
	}
}

// stringMap converts a decoded JSON object into a string-to-string mapping.
// Non-string values are skipped. A nil or non-object input reports false.
func stringMap(v any) (map[string]string, bool) {
	raw, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	out := make(map[string]string, len(raw))
	for k, value := range raw {
		if s, ok := value.(string); ok {
			out[k] = s
		}
	}
	return out, true
}
