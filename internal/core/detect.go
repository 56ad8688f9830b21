package core

// detect.go classifies a parsed table by its header set.

// DetectKind returns the entity kind whose full signature is a subset of
// the observed headers, checking the most specific signature first, or
// KindUnknown. Unknown is not an error: callers decide whether to reject
// the payload or attempt best-effort normalization with an explicit kind.
func DetectKind(headers []string) EntityKind {
	folded := make(map[string]bool, len(headers))
	for _, h := range headers {
		folded[foldKey(CleanCell(h))] = true
	}

	for _, kind := range Kinds() {
		def, ok := Definition(kind)
		if !ok || len(def.Signature) == 0 {
			continue
		}
		if signatureMatches(def, folded) {
			return kind
		}
	}
	return KindUnknown
}

// signatureMatches reports whether every signature field of the definition
// is present in the folded header set under any accepted alias.
func signatureMatches(def EntityDefinition, folded map[string]bool) bool {
	for _, sig := range def.Signature {
		spec, ok := fieldSpec(def, sig)
		if !ok {
			return false
		}
		if !aliasPresent(spec, folded) {
			return false
		}
	}
	return true
}

func fieldSpec(def EntityDefinition, name string) (FieldSpec, bool) {
	for _, spec := range def.Fields {
		if spec.Name == name {
			return spec, true
		}
	}
	return FieldSpec{}, false
}

func aliasPresent(spec FieldSpec, folded map[string]bool) bool {
	if folded[foldKey(spec.Name)] {
		return true
	}
	for _, alias := range spec.Aliases {
		if folded[foldKey(alias)] {
			return true
		}
	}
	return false
}
