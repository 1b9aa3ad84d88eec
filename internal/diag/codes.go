package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Conversion of extracted declarations
	CnvInfo              Code = 1000
	CnvMisplacedAttr     Code = 1001
	CnvBuiltinCollision  Code = 1002
	CnvIncompleteType    Code = 1003
	CnvMissingSource     Code = 1004
	CnvDegradedContainer Code = 1005
	CnvDuplicateName     Code = 1006
	CnvExtraCollision    Code = 1007

	// Merging traced formats
	MrgInfo            Code = 2000
	MrgMismatch        Code = 2001
	MrgStillIncomplete Code = 2002
	MrgUnknownTraced   Code = 2003

	// Generator runs
	GenInfo          Code = 3000
	GenProcessFailed Code = 3001
	GenProtocol      Code = 3002
	GenReportedError Code = 3003
	GenReportedWarn  Code = 3004
	GenUnsafePath    Code = 3005
	GenOutOfDate     Code = 3006
	GenNoFiles       Code = 3007

	// Input/output
	IOLoadFileError    Code = 4001
	IOReadDeclarations Code = 4002
	IOWriteFile        Code = 4003
	IOCacheStore       Code = 4004

	// Manifest
	CfgInfo             Code = 5000
	CfgNotFound         Code = 5001
	CfgInvalid          Code = 5002
	CfgUnknownGenerator Code = 5003
	CfgBadFilter        Code = 5004

	// Observability
	ObsInfo    Code = 6000
	ObsTimings Code = 6001
)

var (
	codeDescription = map[Code]string{
		UnknownCode:          "Unknown error",
		CnvInfo:              "Conversion information",
		CnvMisplacedAttr:     "Attribute is not allowed here",
		CnvBuiltinCollision:  "Two shapes synthesized under one name",
		CnvIncompleteType:    "Type could not be described",
		CnvMissingSource:     "Source file not found",
		CnvDegradedContainer: "Container shape changed by skipped fields",
		CnvDuplicateName:     "Declaration name used twice",
		CnvExtraCollision:    "Auxiliary declaration conflicts with another",
		MrgInfo:              "Merge information",
		MrgMismatch:          "Traced format disagrees with declaration",
		MrgStillIncomplete:   "Format is still incomplete after merging",
		MrgUnknownTraced:     "Traced format has no matching declaration",
		GenInfo:              "Generator information",
		GenProcessFailed:     "Generator process failed",
		GenProtocol:          "Generator broke the output protocol",
		GenReportedError:     "Generator reported an error",
		GenReportedWarn:      "Generator reported a warning",
		GenUnsafePath:        "Generated file escapes the output directory",
		GenOutOfDate:         "Generated file is out of date",
		GenNoFiles:           "Generator produced no files",
		IOLoadFileError:      "I/O error while loading file",
		IOReadDeclarations:   "Could not read declarations",
		IOWriteFile:          "Could not write generated file",
		IOCacheStore:         "Could not store generator output in the cache",
		CfgInfo:              "Manifest information",
		CfgNotFound:          "Manifest not found",
		CfgInvalid:           "Invalid manifest",
		CfgUnknownGenerator:  "Unknown generator",
		CfgBadFilter:         "Invalid filter expression",
		ObsInfo:              "Observability information",
		ObsTimings:           "Pipeline timings",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("CNV%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("MRG%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("GEN%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("CFG%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
