package diag

import "github.com/colelawrence/derive-codegen/internal/source"

func New(sev Severity, code Code, primary source.LocationID, msg string) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Primary:  primary,
		Message:  msg,
	}
}

func NewError(code Code, primary source.LocationID, msg string) Diagnostic {
	return New(SevError, code, primary, msg)
}

func NewWarning(code Code, primary source.LocationID, msg string) Diagnostic {
	return New(SevWarning, code, primary, msg)
}

func (d Diagnostic) WithNote(loc source.LocationID, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Location: loc, Msg: msg})
	return d
}

func (d Diagnostic) WithSubject(name string) Diagnostic {
	d.Subject = name
	return d
}
