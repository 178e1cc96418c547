// Package lockscan reports whether a document, or anything nested inside it,
// is password protected.
//
// Supported leaf formats are legacy Word, Excel and PowerPoint compound
// files, OOXML packages encrypted into a compound file, OpenDocument files
// and PDF. Zip archives, Outlook .msg files, RFC 822 .eml messages and mbox
// mailboxes are opened and their contents checked recursively; the first
// protected item found is reported together with the trail of names that
// leads to it.
//
// # Basic Usage
//
//	checker, err := lockscan.NewDefault()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	res, err := checker.CheckFile(ctx, "inbox/report.eml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if res.Protected {
//	    fmt.Println("locked:", res.TrailString())
//	}
//
// In-memory blobs and streams are checked with [Checker.CheckBytes] and
// [Checker.CheckStream]. The optional name hint selects the format by
// extension; without it the content is sniffed, which needs at least 100
// bytes.
//
// # Configuration
//
// Configuration is loaded from BEAVER_LOCKSCAN_* environment variables:
//
//	BEAVER_LOCKSCAN_MAX_DEPTH=16
//	BEAVER_LOCKSCAN_MAX_FILE_SIZE=536870912
//	BEAVER_LOCKSCAN_MAX_ENTRY_SIZE=268435456
//	BEAVER_LOCKSCAN_MAX_ENTRIES=10000
//	BEAVER_LOCKSCAN_MAX_UNCOMPRESSED_SIZE=1073741824
//	BEAVER_LOCKSCAN_MAX_COMPRESSION_RATIO=1000
//	BEAVER_LOCKSCAN_SNIFF_UNKNOWN_EXTENSIONS=false
//	BEAVER_LOCKSCAN_CACHE_ENABLED=false
//	BEAVER_LOCKSCAN_CACHE_TTL_SECONDS=300
//	BEAVER_LOCKSCAN_LOG_LEVEL=info
//
//	if err := lockscan.Init(); err != nil {
//	    log.Fatal(err)
//	}
//	res, err := lockscan.Default().CheckFile(ctx, path)
//
// [WithPrefix] replaces the BEAVER_ prefix, and
// [LoadConfigFile] reads the same keys from a TOML file.
//
// # Directories
//
// [Checker.ScanDir] checks every file under a directory matching a glob and
// [Checker.Watch] checks files as they are created or written:
//
//	err := checker.ScanDir(ctx, "uploads", "**.{docx,xlsx,pdf,zip}",
//	    func(path string, res *lockscan.Result, err error) error {
//	        if err == nil && res.Protected {
//	            fmt.Println(path, res.TrailString())
//	        }
//	        return nil
//	    })
//
// # Remote Sources
//
// [Checker.ScanURL] scans any [source.Source] registered for the URL scheme.
// Backends register themselves when imported:
//
//	import _ "github.com/gobeaver/lockscan/source/s3"
//
//	err := checker.ScanURL(ctx, "s3://uploads/incoming/?region=eu-west-1", "**.pdf", report)
//
// Available schemes are file (and plain paths), memory, s3, gs, azblob and
// sftp.
//
// # Errors
//
// Errors can be classified with [IsTooShort], [IsCorrupt] and
// [IsLimitExceeded]. Corrupt errors carry the format and the name of the
// item that failed; see [detector.CorruptError].
//
// # Custom Formats
//
// The probe and container for each format live in a [detector.Registry].
// Pass a modified clone with [WithRegistry] to replace or remove handlers.
package lockscan
