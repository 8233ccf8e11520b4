package bir

type (
	// node handles
	BodyID uint32
	ExprID uint32
	StmtID uint32
	PatID  uint32
	// resolved name handles
	BindingID uint32
	// payload handle inside per-kind arenas
	PayloadID uint32
)

const (
	NoBodyID    BodyID    = 0
	NoExprID    ExprID    = 0
	NoStmtID    StmtID    = 0
	NoPatID     PatID     = 0
	NoBindingID BindingID = 0
	NoPayloadID PayloadID = 0
)

func (id BodyID) IsValid() bool    { return id != NoBodyID }
func (id ExprID) IsValid() bool    { return id != NoExprID }
func (id StmtID) IsValid() bool    { return id != NoStmtID }
func (id PatID) IsValid() bool     { return id != NoPatID }
func (id BindingID) IsValid() bool { return id != NoBindingID }
func (id PayloadID) IsValid() bool { return id != NoPayloadID }
