package content

// OpClass groups content stream operators by the role they play when a
// stream is split into graphics elements.
type OpClass int

const (
	ClassUnknown       OpClass = iota
	ClassState                 // general graphics state: cm, w, J, gs, colours...
	ClassSave                  // q
	ClassRestore               // Q
	ClassTextBegin             // BT
	ClassTextEnd               // ET
	ClassTextState             // Tc, Tw, Tz, TL, Tf, Tr, Ts
	ClassTextPosition          // Td, TD, Tm, T*
	ClassTextShow              // Tj, TJ, ', "
	ClassPathConstruct         // m, l, c, v, y, h, re
	ClassPathPaint             // S, s, f, F, f*, B, B*, b, b*, n
	ClassClip                  // W, W*
	ClassXObject               // Do
	ClassShading               // sh
	ClassInlineImage           // BI
	ClassMarkedBegin           // BMC, BDC
	ClassMarkedEnd             // EMC
	ClassMarkedPoint           // MP, DP
	ClassCompat                // BX, EX
	ClassType3                 // d0, d1
)

var operatorClasses = map[string]OpClass{
	"w": ClassState, "J": ClassState, "j": ClassState, "M": ClassState,
	"d": ClassState, "ri": ClassState, "i": ClassState, "gs": ClassState,
	"cm": ClassState,
	"CS": ClassState, "cs": ClassState, "SC": ClassState, "SCN": ClassState,
	"sc": ClassState, "scn": ClassState, "G": ClassState, "g": ClassState,
	"RG": ClassState, "rg": ClassState, "K": ClassState, "k": ClassState,

	"q": ClassSave,
	"Q": ClassRestore,

	"BT": ClassTextBegin,
	"ET": ClassTextEnd,

	"Tc": ClassTextState, "Tw": ClassTextState, "Tz": ClassTextState,
	"TL": ClassTextState, "Tf": ClassTextState, "Tr": ClassTextState,
	"Ts": ClassTextState,

	"Td": ClassTextPosition, "TD": ClassTextPosition, "Tm": ClassTextPosition,
	"T*": ClassTextPosition,

	"Tj": ClassTextShow, "TJ": ClassTextShow, "'": ClassTextShow, "\"": ClassTextShow,

	"m": ClassPathConstruct, "l": ClassPathConstruct, "c": ClassPathConstruct,
	"v": ClassPathConstruct, "y": ClassPathConstruct, "h": ClassPathConstruct,
	"re": ClassPathConstruct,

	"S": ClassPathPaint, "s": ClassPathPaint, "f": ClassPathPaint,
	"F": ClassPathPaint, "f*": ClassPathPaint, "B": ClassPathPaint,
	"B*": ClassPathPaint, "b": ClassPathPaint, "b*": ClassPathPaint,
	"n": ClassPathPaint,

	"W": ClassClip, "W*": ClassClip,

	"Do": ClassXObject,
	"sh": ClassShading,
	"BI": ClassInlineImage,

	"BMC": ClassMarkedBegin, "BDC": ClassMarkedBegin,
	"EMC": ClassMarkedEnd,
	"MP":  ClassMarkedPoint, "DP": ClassMarkedPoint,

	"BX": ClassCompat, "EX": ClassCompat,

	"d0": ClassType3, "d1": ClassType3,
}

// Class returns the class of a content stream operator
func Class(operator string) OpClass {
	if c, ok := operatorClasses[operator]; ok {
		return c
	}
	return ClassUnknown
}

// IsPainting reports whether the path paint operator produces visible marks.
// The n operator ends a path without filling or stroking it.
func IsPainting(operator string) bool {
	return Class(operator) == ClassPathPaint && operator != "n"
}
