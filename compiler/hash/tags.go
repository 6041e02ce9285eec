package hash

// ---------------------------------------------------------------------------
// Frozen tag bytes for the structural fingerprint format.
//
// Once assigned, a tag byte must never change meaning. Adding new tags is
// fine; changing existing ones invalidates every stored fingerprint.
// ---------------------------------------------------------------------------

// HashVersion is the version prefix for the serialization format.
const HashVersion byte = 1

// AST node type tags.
const (
	TagAbsent  byte = 0x00 // optional child not present
	TagProgram byte = 0x01

	// Expressions
	TagLiteralNull   byte = 0x10
	TagLiteralNumber byte = 0x11
	TagLiteralString byte = 0x12
	TagLiteralBool   byte = 0x13
	TagVariable      byte = 0x14
	TagThis          byte = 0x15
	TagAssign        byte = 0x16
	TagGet           byte = 0x17
	TagSet           byte = 0x18
	TagBinary        byte = 0x19
	TagLogical       byte = 0x1A
	TagUnary         byte = 0x1B
	TagCall          byte = 0x1C
	TagGrouping      byte = 0x1D
	TagIndex         byte = 0x1E
	TagSetIndex      byte = 0x1F
	TagList          byte = 0x20
	TagDict          byte = 0x21

	// Statements
	TagBlock    byte = 0x40
	TagBreak    byte = 0x41
	TagClass    byte = 0x42
	TagExprStmt byte = 0x43
	TagForeach  byte = 0x44
	TagFunction byte = 0x45
	TagIf       byte = 0x46
	TagImport   byte = 0x47
	TagMethod   byte = 0x48
	TagRepeat   byte = 0x49
	TagReturn   byte = 0x4A
	TagVarDecl  byte = 0x4B
	TagWhile    byte = 0x4C
	TagParams   byte = 0x4D
)
