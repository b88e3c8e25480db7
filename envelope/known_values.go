package envelope

import (
	"fmt"
	"strconv"
)

// KnownValue is a registry-indexed semantic tag used mostly as a predicate.
type KnownValue uint64

const (
	IsA            KnownValue = 1
	ID             KnownValue = 2
	Signed         KnownValue = 3
	Note           KnownValue = 4
	HasRecipient   KnownValue = 5
	SSKRShare      KnownValue = 6
	Controller     KnownValue = 7
	Key            KnownValue = 8
	DereferenceVia KnownValue = 9
	Entity         KnownValue = 10
	Name           KnownValue = 11
	Language       KnownValue = 12
	Issuer         KnownValue = 13
	Holder         KnownValue = 14
	Salt           KnownValue = 15
	Date           KnownValue = 16

	Attachment KnownValue = 50
	Vendor     KnownValue = 51
	ConformsTo KnownValue = 52

	// Placeholder markers, used in summaries.
	ElidedMarker     KnownValue = 60
	EncryptedMarker  KnownValue = 61
	CompressedMarker KnownValue = 62
)

var knownNames = map[KnownValue]string{
	IsA:              "isA",
	ID:               "id",
	Signed:           "signed",
	Note:             "note",
	HasRecipient:     "hasRecipient",
	SSKRShare:        "sskrShare",
	Controller:       "controller",
	Key:              "key",
	DereferenceVia:   "dereferenceVia",
	Entity:           "entity",
	Name:             "name",
	Language:         "language",
	Issuer:           "issuer",
	Holder:           "holder",
	Salt:             "salt",
	Date:             "date",
	Attachment:       "attachment",
	Vendor:           "vendor",
	ConformsTo:       "conformsTo",
	ElidedMarker:     "elided",
	EncryptedMarker:  "encrypted",
	CompressedMarker: "compressed",
}

var knownByName = func() map[string]KnownValue {
	m := make(map[string]KnownValue, len(knownNames))
	for v, n := range knownNames {
		m[n] = v
	}
	return m
}()

// Name returns the registered name, or the decimal value for unregistered entries.
func (kv KnownValue) Name() string {
	if n, ok := knownNames[kv]; ok {
		return n
	}
	return strconv.FormatUint(uint64(kv), 10)
}

func (kv KnownValue) String() string { return kv.Name() }

// ParseKnownValue accepts a registered name or a decimal value.
func ParseKnownValue(s string) (KnownValue, error) {
	if kv, ok := knownByName[s]; ok {
		return kv, nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unknown known value %q", s)
	}
	return KnownValue(n), nil
}
