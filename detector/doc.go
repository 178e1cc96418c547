// Package detector decides whether a document, or anything nested inside it,
// is password protected.
//
// A blob is dispatched by format: a file name hint wins, otherwise the head
// of the content is sniffed. Leaf formats are handed to a Probe:
//
//   - Word, Excel and PowerPoint (legacy binary and encrypted OOXML)
//   - OpenDocument
//   - PDF
//
// Container formats are expanded by a Container into children that are
// dispatched in turn:
//
//   - ZIP archives
//   - Outlook .msg messages, including embedded messages
//   - RFC 822 / MIME messages
//   - mbox mailboxes
//
// The walk stops at the first protected artifact and reports the trail of
// names that leads to it:
//
//	d := detector.New()
//	res, err := d.Check(ctx, data, "inbox.eml")
//	if err != nil {
//	    return err
//	}
//	if res.Protected {
//	    fmt.Println(res.TrailString()) // inbox.eml -> report.zip -> q3.xlsx
//	}
//
// Custom probes are added by cloning a registry:
//
//	reg := detector.DefaultRegistry().Clone()
//	reg.RegisterProbe(detector.PDF, myPDFProbe)
//	d := &detector.Detector{Registry: reg, Limits: detector.DefaultLimits()}
package detector
