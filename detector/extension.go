package detector

import (
	"path"
	"strings"
)

// extensionTags maps lower-case file extensions to format tags. It covers
// the legacy and OOXML variants of Word, Excel and PowerPoint, the
// OpenDocument family and the container formats.
var extensionTags = map[string]Tag{
	// Word
	".doc":  Word,
	".dot":  Word,
	".docx": Word,
	".docm": Word,
	".dotx": Word,
	".dotm": Word,

	// Excel
	".xls":  Excel,
	".xlt":  Excel,
	".xla":  Excel,
	".xlsx": Excel,
	".xlsm": Excel,
	".xlsb": Excel,
	".xltx": Excel,
	".xltm": Excel,
	".xlam": Excel,

	// PowerPoint
	".ppt":  PowerPoint,
	".pot":  PowerPoint,
	".pps":  PowerPoint,
	".ppa":  PowerPoint,
	".pptx": PowerPoint,
	".pptm": PowerPoint,
	".potx": PowerPoint,
	".potm": PowerPoint,
	".ppsx": PowerPoint,
	".ppsm": PowerPoint,
	".ppam": PowerPoint,

	// OpenDocument
	".odt": OpenDocument,
	".ott": OpenDocument,
	".ods": OpenDocument,
	".ots": OpenDocument,
	".odp": OpenDocument,
	".otp": OpenDocument,
	".odg": OpenDocument,
	".otg": OpenDocument,
	".odf": OpenDocument,
	".odm": OpenDocument,

	".pdf":  PDF,
	".zip":  Zip,
	".msg":  Msg,
	".eml":  Eml,
	".mbox": Mbox,
}

// FromName maps a file name or bare extension (".docx" or "docx") to a
// format tag. Unrecognized extensions yield Unknown.
func FromName(name string) Tag {
	name = strings.ReplaceAll(name, "\\", "/")
	ext := path.Ext(name)
	if ext == "" && name != "" && !strings.Contains(name, "/") {
		ext = "." + name
	}
	if tag, ok := extensionTags[strings.ToLower(ext)]; ok {
		return tag
	}
	return Unknown
}

// ExtensionForMIME returns a file extension for a MIME type, or "" if the
// type does not map to a known format.
func ExtensionForMIME(mime string) string {
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case MIMEWord:
		return ".doc"
	case MIMEDocx:
		return ".docx"
	case MIMEExcel:
		return ".xls"
	case MIMEXlsx:
		return ".xlsx"
	case MIMEPowerPoint:
		return ".ppt"
	case MIMEPptx:
		return ".pptx"
	case MIMEPDF:
		return ".pdf"
	case MIMEZip, "application/x-zip-compressed":
		return ".zip"
	case MIMEOutlook:
		return ".msg"
	case MIMEMessage:
		return ".eml"
	case MIMEMbox:
		return ".mbox"
	}
	if tag := TagForMIME(mime); tag == OpenDocument {
		return ".odt"
	}
	return ""
}
