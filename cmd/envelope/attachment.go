package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"xdao.co/envelope/envelope"
)

func (a *app) attachmentCmd() *cobra.Command {
	cmd := groupCmd("attachment", "Work with vendor-specific attachments")
	cmd.AddCommand(
		a.attachmentCreateCmd(),
		a.attachmentAddCmd(),
		a.attachmentAllCmd(),
		a.attachmentCountCmd(),
		a.attachmentFindCmd(),
		a.attachmentPartCmd("payload", "Print the payload of an attachment"),
		a.attachmentPartCmd("vendor", "Print the vendor of an attachment"),
		a.attachmentPartCmd("conforms-to", "Print the conformsTo of an attachment, if any"),
	)
	return cmd
}

func (a *app) attachmentCreateCmd() *cobra.Command {
	var vendor, conformsTo string
	cmd := &cobra.Command{
		Use:   "create --vendor <VENDOR> [PAYLOAD]",
		Short: "Create an attachment assertion around a payload envelope",
		Args:  argsRange(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if vendor == "" {
				return usagef("missing --vendor")
			}
			payload, err := a.readEnvelope(args, 0)
			if err != nil {
				return err
			}
			return a.printEnvelope(envelope.NewAttachment(payload, vendor, conformsTo))
		},
	}
	cmd.Flags().StringVar(&vendor, "vendor", "", "Vendor identifier, usually a reverse domain name")
	cmd.Flags().StringVar(&conformsTo, "conforms-to", "", "Optional format identifier, usually a URI")
	return cmd
}

func (a *app) attachmentAddCmd() *cobra.Command {
	var vendor, conformsTo, payloadArg, attachmentArg string
	cmd := &cobra.Command{
		Use:   "add (--attachment <ATTACHMENT> | --vendor <VENDOR> --payload <PAYLOAD>) [ENVELOPE]",
		Short: "Add an attachment to an envelope",
		Args:  argsRange(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var att *envelope.Envelope
			switch {
			case attachmentArg != "" && (payloadArg != "" || vendor != "" || conformsTo != ""):
				return usagef("--attachment excludes --vendor, --conforms-to and --payload")
			case attachmentArg != "":
				var err error
				if att, err = envelope.DecodeString(attachmentArg); err != nil {
					return err
				}
				if err := att.ValidateAttachment(); err != nil {
					return err
				}
			case vendor == "" || payloadArg == "":
				return usagef("pass --attachment, or --vendor with --payload")
			default:
				payload, err := envelope.DecodeString(payloadArg)
				if err != nil {
					return err
				}
				att = envelope.NewAttachment(payload, vendor, conformsTo)
			}
			e, err := a.readEnvelope(args, 0)
			if err != nil {
				return err
			}
			out, err := e.AddAssertionEnvelope(att)
			if err != nil {
				return err
			}
			return a.printEnvelope(out)
		},
	}
	f := cmd.Flags()
	f.StringVar(&attachmentArg, "attachment", "", "Attachment assertion created with 'attachment create'")
	f.StringVar(&vendor, "vendor", "", "Vendor identifier")
	f.StringVar(&conformsTo, "conforms-to", "", "Optional format identifier")
	f.StringVar(&payloadArg, "payload", "", "Payload envelope")
	return cmd
}

func (a *app) attachmentAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "all [ENVELOPE]",
		Short: "Print every attachment, one envelope per line",
		Args:  argsRange(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.readEnvelope(args, 0)
			if err != nil {
				return err
			}
			return a.printEnvelopes(e.Attachments())
		},
	}
}

func (a *app) attachmentCountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count [ENVELOPE]",
		Short: "Print the number of attachments",
		Args:  argsRange(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.readEnvelope(args, 0)
			if err != nil {
				return err
			}
			return a.printLine(strconv.Itoa(len(e.Attachments())))
		},
	}
}

func (a *app) attachmentFindCmd() *cobra.Command {
	var vendor, conformsTo string
	cmd := &cobra.Command{
		Use:   "find [--vendor <VENDOR>] [--conforms-to <URI>] [ENVELOPE]",
		Short: "Print the attachments matching a vendor and conformsTo",
		Args:  argsRange(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.readEnvelope(args, 0)
			if err != nil {
				return err
			}
			found, err := e.AttachmentsMatching(vendor, conformsTo)
			if err != nil {
				return err
			}
			return a.printEnvelopes(found)
		},
	}
	cmd.Flags().StringVar(&vendor, "vendor", "", "Only attachments from this vendor")
	cmd.Flags().StringVar(&conformsTo, "conforms-to", "", "Only attachments with this conformsTo")
	return cmd
}

func (a *app) attachmentPartCmd(part, short string) *cobra.Command {
	return &cobra.Command{
		Use:   part + " [ATTACHMENT]",
		Short: short,
		Args:  argsRange(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			att, err := a.readEnvelope(args, 0)
			if err != nil {
				return err
			}
			switch part {
			case "payload":
				p, err := att.AttachmentPayload()
				if err != nil {
					return err
				}
				return a.printEnvelope(p)
			case "vendor":
				v, err := att.AttachmentVendor()
				if err != nil {
					return err
				}
				return a.printLine(v)
			default:
				c, err := att.AttachmentConformsTo()
				if err != nil || c == "" {
					return err
				}
				return a.printLine(c)
			}
		},
	}
}
