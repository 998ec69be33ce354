package message

// Emitter is the minimal emission surface EmitOpener needs: any
// chain.Emitter (or test double) already satisfies this, since the
// method signature is identical; message cannot import chain (chain
// imports message), so the interface is restated here rather than
// shared.
type Emitter interface {
	Emit(msg Message) (Continuation, error)
}

// EmitOpener emits a structural opener through emit and reports whether
// the caller should go on to emit that opener's children.
//
// If the opener's consumer returns Skip, EmitOpener also emits the
// matching closer on the caller's behalf and reports proceed=false: the
// caller must not emit the opener's children, but the opener/closer pair
// still round-trips. If the consumer returns Stop (or an error),
// proceed=false and cont/err are returned unchanged for the caller to
// propagate immediately, exactly as it would have before. If the
// consumer returns Skip for a Kind with no registered closer (see
// Closer), no closer is emitted and EmitOpener reports proceed=false
// with cont=Skip.
func EmitOpener(emit Emitter, opener Message) (proceed bool, cont Continuation, err error) {
	cont, err = emit.Emit(opener)
	if err != nil || cont == Stop {
		return false, cont, err
	}
	if cont != Skip {
		return true, Proceed, nil
	}

	closerKind, ok := Closer(opener.Kind)
	if !ok {
		return false, cont, nil
	}
	closeCont, closeErr := emit.Emit(simple(closerKind))
	if closeErr != nil || closeCont == Stop {
		return false, closeCont, closeErr
	}
	return false, Proceed, nil
}
