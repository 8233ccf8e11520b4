package liveness

import (
	"fmt"

	"fortio.org/safecast"

	"ebb/internal/bir"
	"ebb/internal/source"
)

type liveNodeInfo struct {
	kind LiveNodeKind
	span source.Span
}

type varInfo struct {
	kind      VarKind
	binding   bir.BindingID
	name      string
	span      source.Span
	shorthand bool
}

// captureInfo pairs the UpvarNode allocated at a closure expression with the
// captured variable of the enclosing body.
type captureInfo struct {
	ln       LiveNode
	variable Variable
}

// irMaps is the output of the index pass for one body: dense LiveNode and
// Variable handles plus the lookup tables the solver and the checks key on.
// All lookups that miss indicate a malformed body and panic; Check recovers
// per body.
type irMaps struct {
	file *bir.File
	body *bir.Body

	nodes []liveNodeInfo // LiveNode ln lives at nodes[ln-1]
	vars  []varInfo      // Variable v lives at vars[v-1]

	varOfBinding map[bir.BindingID]Variable
	lnOfExpr     map[bir.ExprID]LiveNode
	lnOfPat      map[bir.PatID]LiveNode
	// captures lists, per closure expression of this body, the UpvarNodes
	// bridging the nested body's capture list into this body's flow.
	captures map[bir.ExprID][]captureInfo
}

// buildIRMaps walks body once and assigns every index. Capture variables
// come first so upvars are tracked even when the body text never mentions
// them, then parameters, then the tree in pre-order.
func buildIRMaps(file *bir.File, body *bir.Body) *irMaps {
	m := &irMaps{
		file:         file,
		body:         body,
		varOfBinding: make(map[bir.BindingID]Variable),
		lnOfExpr:     make(map[bir.ExprID]LiveNode),
		lnOfPat:      make(map[bir.PatID]LiveNode),
		captures:     make(map[bir.ExprID][]captureInfo),
	}
	for _, cap := range body.Captures {
		m.registerVariable(varInfo{
			kind:    VarUpvar,
			binding: cap.Binding,
			name:    cap.Name,
			span:    cap.Span,
		})
	}
	for _, param := range body.Params {
		m.indexParam(param)
	}
	m.indexExpr(body.Root)
	return m
}

func (m *irMaps) addLiveNode(kind LiveNodeKind, span source.Span) LiveNode {
	n, err := safecast.Conv[uint32](len(m.nodes) + 1)
	if err != nil {
		panic(fmt.Errorf("live node index overflow: %w", err))
	}
	m.nodes = append(m.nodes, liveNodeInfo{kind: kind, span: span})
	return LiveNode(n)
}

func (m *irMaps) addExprNode(id bir.ExprID, span source.Span) {
	m.lnOfExpr[id] = m.addLiveNode(ExprNode, span)
}

func (m *irMaps) addPatNode(id bir.PatID, span source.Span) {
	m.lnOfPat[id] = m.addLiveNode(VarDefNode, span)
}

// registerVariable assigns a Variable to a binding the first time it is
// seen. Or-pattern alternatives share a BindingID, so later occurrences get
// the already-assigned handle; the first occurrence's info is authoritative.
func (m *irMaps) registerVariable(info varInfo) Variable {
	if v, ok := m.varOfBinding[info.binding]; ok {
		return v
	}
	n, err := safecast.Conv[uint32](len(m.vars) + 1)
	if err != nil {
		panic(fmt.Errorf("variable index overflow: %w", err))
	}
	v := Variable(n)
	m.vars = append(m.vars, info)
	m.varOfBinding[info.binding] = v
	return v
}

// indexParam registers one VarDefNode and one Variable per binding of the
// parameter pattern. A parameter whose pattern is a single binding yields a
// VarParam; bindings nested in a destructuring pattern yield VarLocals.
func (m *irMaps) indexParam(param bir.Param) {
	m.body.Pats.EachBinding(param.Pat, func(occ bir.BindingOcc) {
		m.addPatNode(occ.Pat, occ.Span)
		kind := VarLocal
		if occ.Pat == param.Pat {
			kind = VarParam
		}
		m.registerVariable(varInfo{
			kind:      kind,
			binding:   occ.Binding,
			name:      occ.Name,
			span:      occ.Span,
			shorthand: occ.Shorthand,
		})
	})
}

// indexPat registers nodes and variables for a let or match-arm pattern.
// Every or-pattern alternative gets its own VarDefNode; the shared binding
// maps to a single Variable.
func (m *irMaps) indexPat(root bir.PatID) {
	m.body.Pats.EachBinding(root, func(occ bir.BindingOcc) {
		m.addPatNode(occ.Pat, occ.Span)
		m.registerVariable(varInfo{
			kind:      VarLocal,
			binding:   occ.Binding,
			name:      occ.Name,
			span:      occ.Span,
			shorthand: occ.Shorthand,
		})
	})
}

func (m *irMaps) indexExpr(id bir.ExprID) {
	if !id.IsValid() {
		return
	}
	expr := m.expr(id)
	switch expr.Kind {
	case bir.ExprLit:
		// leaf

	case bir.ExprVarRef:
		data, _ := m.body.Exprs.VarRef(id)
		if data.Binding.IsValid() {
			m.addExprNode(id, expr.Span)
		}

	case bir.ExprUnary:
		data, _ := m.body.Exprs.Unary(id)
		m.indexExpr(data.Operand)

	case bir.ExprBinary:
		data, _ := m.body.Exprs.Binary(id)
		if data.Op.IsLazy() {
			m.addExprNode(id, expr.Span)
		}
		m.indexExpr(data.Left)
		m.indexExpr(data.Right)

	case bir.ExprAssign:
		data, _ := m.body.Exprs.Assign(id)
		m.indexExpr(data.Place)
		m.indexExpr(data.Value)

	case bir.ExprAssignOp:
		data, _ := m.body.Exprs.AssignOp(id)
		m.indexExpr(data.Place)
		m.indexExpr(data.Value)

	case bir.ExprField:
		data, _ := m.body.Exprs.Field(id)
		m.indexExpr(data.Object)

	case bir.ExprIndex:
		data, _ := m.body.Exprs.Index(id)
		m.indexExpr(data.Object)
		m.indexExpr(data.Index)

	case bir.ExprCall:
		data, _ := m.body.Exprs.Call(id)
		m.indexExpr(data.Callee)
		for _, arg := range data.Args {
			m.indexExpr(arg)
		}

	case bir.ExprStruct:
		data, _ := m.body.Exprs.Struct(id)
		for _, field := range data.Fields {
			m.indexExpr(field.Value)
		}
		m.indexExpr(data.Base)

	case bir.ExprArray:
		data, _ := m.body.Exprs.Array(id)
		for _, elem := range data.Elems {
			m.indexExpr(elem)
		}

	case bir.ExprTuple:
		data, _ := m.body.Exprs.Tuple(id)
		for _, elem := range data.Elems {
			m.indexExpr(elem)
		}

	case bir.ExprCast:
		data, _ := m.body.Exprs.Cast(id)
		m.indexExpr(data.Value)

	case bir.ExprBlock:
		data, _ := m.body.Exprs.Block(id)
		for _, stmt := range data.Stmts {
			m.indexStmt(stmt)
		}
		m.indexExpr(data.Tail)

	case bir.ExprMatch:
		m.addExprNode(id, expr.Span)
		data, _ := m.body.Exprs.Match(id)
		m.indexExpr(data.Scrutinee)
		for _, arm := range data.Arms {
			m.indexPat(arm.Pat)
			m.indexExpr(arm.Guard)
			m.indexExpr(arm.Body)
		}

	case bir.ExprLoop:
		m.addExprNode(id, expr.Span)
		data, _ := m.body.Exprs.Loop(id)
		m.indexExpr(data.Body)

	case bir.ExprBreak:
		data, _ := m.body.Exprs.Break(id)
		m.indexExpr(data.Value)

	case bir.ExprContinue:
		// leaf; the target is a back-reference, not a child

	case bir.ExprReturn:
		data, _ := m.body.Exprs.Return(id)
		m.indexExpr(data.Value)

	case bir.ExprYield:
		data, _ := m.body.Exprs.Yield(id)
		m.indexExpr(data.Value)

	case bir.ExprClosure:
		m.addExprNode(id, expr.Span)
		data, _ := m.body.Exprs.Closure(id)
		m.indexClosureCaptures(id, data.Body)

	default:
		panic(fmt.Errorf("body %q: unhandled expression kind %s", m.body.Name, expr.Kind))
	}
}

func (m *irMaps) indexStmt(id bir.StmtID) {
	stmt := m.body.Stmts.Get(id)
	if stmt == nil {
		panic(fmt.Errorf("body %q references missing statement s%d", m.body.Name, uint32(id)))
	}
	switch stmt.Kind {
	case bir.StmtLet:
		m.indexPat(stmt.Pat)
		m.indexExpr(stmt.Init)
	case bir.StmtExpr:
		m.indexExpr(stmt.Expr)
	}
}

// indexClosureCaptures allocates one UpvarNode per entry of the nested
// body's capture list, in list order. The nested body itself is analyzed
// separately with its own index space; only the capture list couples back
// into this body.
func (m *irMaps) indexClosureCaptures(id bir.ExprID, bodyID bir.BodyID) {
	nested := m.file.Body(bodyID)
	if nested == nil {
		panic(fmt.Errorf("body %q: closure e%d references missing body b%d",
			m.body.Name, uint32(id), uint32(bodyID)))
	}
	caps := make([]captureInfo, 0, len(nested.Captures))
	for _, cap := range nested.Captures {
		caps = append(caps, captureInfo{
			ln:       m.addLiveNode(UpvarNode, cap.Span),
			variable: m.variableOf(cap.Binding),
		})
	}
	m.captures[id] = caps
}

func (m *irMaps) expr(id bir.ExprID) *bir.Expr {
	e := m.body.Exprs.Get(id)
	if e == nil {
		panic(fmt.Errorf("body %q references missing expression e%d", m.body.Name, uint32(id)))
	}
	return e
}

func (m *irMaps) numNodes() uint32 {
	return uint32(len(m.nodes))
}

func (m *irMaps) numVars() uint32 {
	return uint32(len(m.vars))
}

func (m *irMaps) node(ln LiveNode) liveNodeInfo {
	if !ln.IsValid() || uint32(ln) > uint32(len(m.nodes)) {
		panic(fmt.Errorf("body %q: no such live node %s", m.body.Name, ln))
	}
	return m.nodes[ln-1]
}

func (m *irMaps) variable(v Variable) varInfo {
	if !v.IsValid() || uint32(v) > uint32(len(m.vars)) {
		panic(fmt.Errorf("body %q: no such variable %s", m.body.Name, v))
	}
	return m.vars[v-1]
}

// liveNodeOfExpr resolves the LiveNode the index pass assigned to an
// expression. Both passes must agree on which expressions are
// flow-relevant; a miss is fatal for the body.
func (m *irMaps) liveNodeOfExpr(id bir.ExprID) LiveNode {
	ln, ok := m.lnOfExpr[id]
	if !ok {
		panic(fmt.Errorf("body %q: no live node for expression e%d", m.body.Name, uint32(id)))
	}
	return ln
}

func (m *irMaps) liveNodeOfPat(id bir.PatID) LiveNode {
	ln, ok := m.lnOfPat[id]
	if !ok {
		panic(fmt.Errorf("body %q: no live node for pattern p%d", m.body.Name, uint32(id)))
	}
	return ln
}

func (m *irMaps) variableOf(binding bir.BindingID) Variable {
	v, ok := m.varOfBinding[binding]
	if !ok {
		name := m.file.BindingNames[binding]
		panic(fmt.Errorf("body %q: no variable for binding `%s` (#%d)", m.body.Name, name, uint32(binding)))
	}
	return v
}
