package wire

import "encoding/json"

const (
	fieldPaymentMethods  = "paymentMethods"
	fieldPreferredMethod = "preferredMethod"
	fieldMethodName      = "name"
	fieldMethodDetails   = "details"
)

// DecodeMethods parses a session-start payload into the available payment
// methods. The "paymentMethods" sequence is required; everything inside an
// entry is decoded tolerantly (missing keys become empty values).
func DecodeMethods(payload []byte) (SessionMethods, error) {
	var m map[string]any
	if err := json.Unmarshal(payload, &m); err != nil {
		return SessionMethods{}, NewInvalidField(fieldPaymentMethods)
	}

	rawMethods, ok := m[fieldPaymentMethods].([]any)
	if !ok {
		return SessionMethods{}, NewInvalidField(fieldPaymentMethods)
	}

	methods := make([]PaymentMethod, 0, len(rawMethods))
	for _, entry := range rawMethods {
		fields, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		methods = append(methods, decodeMethod(fields))
	}

	result := SessionMethods{Methods: methods}
	if preferred, ok := m[fieldPreferredMethod].(map[string]any); ok {
		method := decodeMethod(preferred)
		result.Preferred = &method
	}
	return result, nil
}

func decodeMethod(fields map[string]any) PaymentMethod {
	methodType, _ := stringField(fields, fieldType)
	name, _ := stringField(fields, fieldMethodName)
	method := PaymentMethod{Type: methodType, Name: name}

	rawDetails, ok := fields[fieldMethodDetails].([]any)
	if !ok {
		return method
	}
	for _, entry := range rawDetails {
		detail, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		key, _ := stringField(detail, "key")
		kind, _ := stringField(detail, "type")
		method.Details = append(method.Details, DetailField{
			Key:      key,
			Type:     kind,
			Optional: coerceBool(detail["optional"]),
		})
	}
	return method
}
