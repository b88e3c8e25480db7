package envelope

// An attachment is an assertion
//
//	'attachment': {
//	    payload
//	} [
//	    'vendor': "com.example"
//	    'conformsTo': "https://example.com/format/v1"
//	]
//
// carrying vendor-specific data that other parties may ignore. The payload is wrapped so
// assertions on the payload itself stay separate from the attachment metadata.

// NewAttachment returns an attachment assertion. conformsTo may be empty.
func NewAttachment(payload any, vendor, conformsTo string) *Envelope {
	obj := New(payload).Wrap().AddAssertion(Vendor, vendor)
	if conformsTo != "" {
		obj = obj.AddAssertion(ConformsTo, conformsTo)
	}
	return newAssertion(NewKnownValue(Attachment), obj)
}

// AddAttachment returns e with an attachment assertion added.
func (e *Envelope) AddAttachment(payload any, vendor, conformsTo string) *Envelope {
	return newNode(e, []*Envelope{NewAttachment(payload, vendor, conformsTo)})
}

// Attachments returns the attachment assertions of e in digest order.
func (e *Envelope) Attachments() []*Envelope {
	return e.AssertionsWithPredicate(Attachment)
}

// AttachmentsMatching returns the attachments whose vendor and conformsTo equal the given
// values. An empty argument matches anything. Malformed attachments are an error.
func (e *Envelope) AttachmentsMatching(vendor, conformsTo string) ([]*Envelope, error) {
	var out []*Envelope
	for _, a := range e.Attachments() {
		if err := a.ValidateAttachment(); err != nil {
			return nil, err
		}
		if vendor != "" {
			if v, _ := a.AttachmentVendor(); v != vendor {
				continue
			}
		}
		if conformsTo != "" {
			if c, _ := a.AttachmentConformsTo(); c != conformsTo {
				continue
			}
		}
		out = append(out, a)
	}
	return out, nil
}

// ValidateAttachment checks that e is a well-formed attachment assertion.
func (e *Envelope) ValidateAttachment() error {
	if _, err := e.AttachmentPayload(); err != nil {
		return err
	}
	if _, err := e.AttachmentVendor(); err != nil {
		return err
	}
	_, err := e.AttachmentConformsTo()
	return err
}

func (e *Envelope) attachmentObject() (*Envelope, error) {
	if e.kind != CaseAssertion {
		return nil, newError(KindInvalidStructure, "ENV-ATTACH-001", "envelope is not an attachment assertion")
	}
	if kv, ok := e.predicate.KnownValue(); !ok || kv != Attachment {
		return nil, newError(KindInvalidStructure, "ENV-ATTACH-001", "envelope is not an attachment assertion")
	}
	return e.object, nil
}

// AttachmentPayload returns the unwrapped payload of an attachment assertion.
func (e *Envelope) AttachmentPayload() (*Envelope, error) {
	obj, err := e.attachmentObject()
	if err != nil {
		return nil, err
	}
	p, err := obj.Unwrap()
	if err != nil {
		return nil, wrapError(KindInvalidStructure, "ENV-ATTACH-002", "attachment payload must be wrapped", err)
	}
	return p, nil
}

// AttachmentVendor returns the required vendor of an attachment assertion.
func (e *Envelope) AttachmentVendor() (string, error) {
	obj, err := e.attachmentObject()
	if err != nil {
		return "", err
	}
	v, err := obj.ObjectForPredicate(Vendor)
	if err != nil {
		return "", wrapError(KindInvalidStructure, "ENV-ATTACH-003", "attachment must carry exactly one vendor", err)
	}
	s, err := Extract[string](v)
	if err != nil || s == "" {
		return "", wrapError(KindInvalidStructure, "ENV-ATTACH-003", "attachment vendor must be a non-empty string", err)
	}
	return s, nil
}

// AttachmentConformsTo returns the optional conformsTo of an attachment assertion, or ""
// when it has none.
func (e *Envelope) AttachmentConformsTo() (string, error) {
	obj, err := e.attachmentObject()
	if err != nil {
		return "", err
	}
	objs := obj.ObjectsForPredicate(ConformsTo)
	switch len(objs) {
	case 0:
		return "", nil
	case 1:
		s, err := Extract[string](objs[0])
		if err != nil {
			return "", wrapError(KindInvalidStructure, "ENV-ATTACH-004", "attachment conformsTo must be a string", err)
		}
		return s, nil
	}
	return "", newError(KindInvalidStructure, "ENV-ATTACH-004", "attachment carries more than one conformsTo")
}
