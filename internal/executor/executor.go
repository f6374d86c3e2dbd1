package executor

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	language "github.com/hnql/hnql/internal/language"
	schema "github.com/hnql/hnql/internal/schema"
)

// Path locates a field in the response tree: string elements are response
// names, int elements are list indices.
type Path []PathElement

type PathElement any

// executionState holds the state of one execution pass. A deferred fragment
// runs in a child state whose base is the fragment's node, so non-null
// propagation stops at the deferred payload boundary.
type executionState struct {
	runtime        Runtime
	schema         *schema.Schema
	document       *language.QueryDocument
	variableValues map[string]any
	context        context.Context
	asyncTaskGroup []asyncTask
	errors         []GraphQLError
	// deferred fragments discovered while expanding this pass
	deferred []deferredUnit
	// prefixes of paths that have been nullified (tombstoned)
	nullifiedPrefix map[string]struct{}
	// positions where writing null is legal: nullable fields and elements
	// of lists with a nullable inner type
	nullablePath map[string]struct{}
	// rootNullified is set when a non-null violation finds no nullable
	// ancestor inside this pass, forcing the pass result itself to null.
	rootNullified bool
	// baseLen is the length of the path prefix this pass is rooted at:
	// 0 for the main pass, len(unit.path) for a deferred unit.
	baseLen int
}

// asyncTask is a pending async field resolution.
type asyncTask struct {
	Task         AsyncResolveTask
	ResponsePath Path
	FieldType    *schema.TypeRef
	Fields       []*language.Field
}

// deferredUnit is a fragment marked @defer, captured with the node value and
// path it was deferred on.
type deferredUnit struct {
	objectType *schema.Type
	selections language.SelectionSet
	source     any
	path       Path
	label      string
}

type asyncPending struct{}

type Executor struct {
	runtime Runtime
	schema  *schema.Schema
}

func NewExecutor(runtime Runtime, schema *schema.Schema) *Executor {
	return &Executor{runtime: runtime, schema: schema}
}

// ExecuteRequest executes an operation to a single, complete result.
// Deferred fragments are honored for @defer(if:) semantics but their output
// is folded back into the response, so callers that cannot stream still get
// the full tree.
func (e *Executor) ExecuteRequest(
	ctx context.Context,
	document *language.QueryDocument,
	operationName string,
	variableValues map[string]any,
	initialValue any,
) *ExecutionResult {
	state, responseRoot, errRes := e.executeInitial(ctx, document, operationName, variableValues, initialValue)
	if errRes != nil {
		return errRes
	}
	if state.rootNullified {
		return &ExecutionResult{Data: nil, Errors: state.errors}
	}

	// Fold deferred fragments back in, breadth-first.
	queue := state.deferred
	state.deferred = nil
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		if state.hasNullifiedPrefix(u.path) {
			continue
		}
		data, errs, nested := e.executeDeferredUnit(state, u)
		state.errors = append(state.errors, errs...)
		if data == nil {
			if len(u.path) > 0 {
				setValueAtPath(responseRoot, u.path, nil)
				state.markNullifiedPrefix(u.path)
			}
			continue
		}
		mergeAtPath(responseRoot, u.path, data)
		queue = append(queue, nested...)
	}

	return &ExecutionResult{Data: responseRoot, Errors: state.errors}
}

// ExecuteRequestIncremental executes an operation, excluding deferred
// fragments from the initial data and delivering them as patches. The
// initial payload is complete before the method returns; patches arrive on
// the returned channel in completion order (a parent fragment's patch always
// precedes its nested fragments' patches) and the channel is closed after
// the last one.
func (e *Executor) ExecuteRequestIncremental(
	ctx context.Context,
	document *language.QueryDocument,
	operationName string,
	variableValues map[string]any,
	initialValue any,
) *IncrementalResult {
	state, responseRoot, errRes := e.executeInitial(ctx, document, operationName, variableValues, initialValue)
	if errRes != nil {
		closed := make(chan Patch)
		close(closed)
		return &IncrementalResult{Data: errRes.Data, Errors: errRes.Errors, Patches: closed}
	}

	res := &IncrementalResult{Data: responseRoot, Errors: state.errors}
	if state.rootNullified {
		res.Data = nil
		state.deferred = nil
	}
	ch := make(chan Patch)
	res.Patches = ch
	if len(state.deferred) == 0 {
		close(ch)
		return res
	}
	res.HasNext = true

	pending := state.deferred
	state.deferred = nil
	go func() {
		defer close(ch)
		var wg sync.WaitGroup
		var run func(u deferredUnit)
		run = func(u deferredUnit) {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			data, errs, nested := e.executeDeferredUnit(state, u)
			select {
			case ch <- Patch{Label: u.label, Path: u.path, Data: data, Errors: errs}:
			case <-ctx.Done():
				return
			}
			for _, n := range nested {
				wg.Add(1)
				go run(n)
			}
		}
		for _, u := range pending {
			wg.Add(1)
			go run(u)
		}
		wg.Wait()
	}()
	return res
}

// executeInitial runs the main breadth-first pass: sync expansion plus one
// async batch per depth, leaving discovered deferred fragments on the state.
func (e *Executor) executeInitial(
	ctx context.Context,
	document *language.QueryDocument,
	operationName string,
	variableValues map[string]any,
	initialValue any,
) (*executionState, map[string]any, *ExecutionResult) {
	operation := getOperation(document, operationName)
	if operation == nil {
		return nil, nil, &ExecutionResult{Errors: []GraphQLError{{Message: "operation not found"}}}
	}
	if operation.Operation != language.Query {
		return nil, nil, &ExecutionResult{Errors: []GraphQLError{{Message: fmt.Sprintf("unsupported operation type: %s", operation.Operation)}}}
	}

	coercedVariableValues, err := coerceVariableValues(e.schema, operation, variableValues)
	if err != nil {
		return nil, nil, &ExecutionResult{Errors: []GraphQLError{{Message: err.Error()}}}
	}

	rootType := e.schema.GetQueryType()
	if rootType == nil {
		return nil, nil, &ExecutionResult{Errors: []GraphQLError{{Message: "root query type not found"}}}
	}

	state := &executionState{
		runtime:         e.runtime,
		schema:          e.schema,
		document:        document,
		variableValues:  coercedVariableValues,
		context:         ctx,
		errors:          []GraphQLError{},
		nullifiedPrefix: make(map[string]struct{}),
		nullablePath:    make(map[string]struct{}),
	}

	responseRoot := make(map[string]any)
	rootResult := executeSelectionSet(state, rootType, operation.SelectionSet, initialValue, Path{})
	for k, v := range rootResult {
		responseRoot[k] = v
	}

	// Depth-wise batch loop.
	for len(state.asyncTaskGroup) > 0 && ctx.Err() == nil && !state.rootNullified {
		filtered, results := flushAsyncTasks(state)
		for i, r := range results {
			completeAsyncField(state, filtered[i], r, responseRoot)
		}
	}
	if ctx.Err() != nil {
		state.failPendingTasks(responseRoot, ctx.Err())
	}

	return state, responseRoot, nil
}

// executeDeferredUnit runs one deferred fragment in a child state rooted at
// the fragment's node. The returned data map is relative to that node; error
// paths stay absolute. Nested deferred fragments found along the way are
// returned for the caller to schedule.
func (e *Executor) executeDeferredUnit(parent *executionState, u deferredUnit) (map[string]any, []GraphQLError, []deferredUnit) {
	st := &executionState{
		runtime:         parent.runtime,
		schema:          parent.schema,
		document:        parent.document,
		variableValues:  parent.variableValues,
		context:         parent.context,
		nullifiedPrefix: make(map[string]struct{}),
		nullablePath:    make(map[string]struct{}),
		baseLen:         len(u.path),
	}
	data := executeSelectionSet(st, u.objectType, u.selections, u.source, u.path)
	if data == nil {
		return nil, st.errors, nil
	}
	for len(st.asyncTaskGroup) > 0 && st.context.Err() == nil && !st.rootNullified {
		filtered, results := flushAsyncTasks(st)
		for i, r := range results {
			completeAsyncField(st, filtered[i], r, data)
		}
	}
	if st.context.Err() != nil {
		st.failPendingTasks(data, st.context.Err())
	}
	if st.rootNullified {
		return nil, st.errors, nil
	}
	return data, st.errors, st.deferred
}

// executeSelectionSet executes a selection set without flushing async work.
// A nil return signals a non-null violation that must bubble past this node.
func executeSelectionSet(state *executionState, objectType *schema.Type, selectionSet language.SelectionSet, objectValue any, path Path) map[string]any {
	groupedFields, deferredSels := collectFields(state, objectType, selectionSet)
	for _, d := range deferredSels {
		state.deferred = append(state.deferred, deferredUnit{
			objectType: objectType,
			selections: d.selections,
			source:     objectValue,
			path:       path,
			label:      d.label,
		})
	}

	resultMap := make(map[string]any)
	for _, collectedField := range groupedFields.orderedFields() {
		responseName := collectedField.ResponseName
		fields := collectedField.Fields
		fieldPath := appendPath(path, responseName)

		fieldResult := executeFieldGroup(state, objectType, objectValue, fields, fieldPath)

		if fields[0].Name == "__typename" {
			resultMap[responseName] = fieldResult
			continue
		}

		fieldDef := objectType.Field(fields[0].Name)
		if fieldDef == nil {
			// Unknown field; error already recorded in executeFieldGroup.
			continue
		}

		if !schema.IsNonNull(fieldDef.Type) {
			state.markNullablePath(fieldPath)
		}

		if schema.IsNonNull(fieldDef.Type) && isNullish(fieldResult) {
			state.markNullifiedPrefix(fieldPath)
			if len(path) > state.baseLen {
				return nil
			}
			// At the pass root: keep going but write nil.
			resultMap[responseName] = nil
			continue
		}

		if isNullish(fieldResult) {
			resultMap[responseName] = nil
		} else {
			resultMap[responseName] = fieldResult
		}
	}

	return resultMap
}

func executeFieldGroup(state *executionState, objectType *schema.Type, objectValue any, fields []*language.Field, path Path) any {
	field := fields[0]
	fieldName := field.Name

	if fieldName == "__typename" {
		return objectType.Name
	}

	fieldDef := objectType.Field(fieldName)
	if fieldDef == nil {
		state.addError(fmt.Sprintf("Cannot query field '%s' on type '%s'", fieldName, objectType.Name), path)
		return nil
	}

	argumentValues := coerceArgumentValues(fieldDef, field.Arguments, state.variableValues, state, path)

	if !fieldDef.Async {
		resolvedValue := resolveSyncField(state, objectType.Name, fieldName, objectValue, argumentValues, path)
		return completeValue(state, fieldDef.Type, fields, resolvedValue, path)
	}

	state.asyncTaskGroup = append(state.asyncTaskGroup, asyncTask{
		Task: AsyncResolveTask{
			ObjectType: objectType.Name,
			Field:      fieldName,
			Source:     objectValue,
			Args:       argumentValues,
			Selected:   selectedFieldNames(state, fields),
		},
		ResponsePath: path,
		FieldType:    fieldDef.Type,
		Fields:       fields,
	})
	return asyncPending{}
}

// flushAsyncTasks drains the current depth's task group in one batch call,
// dropping tasks under nullified prefixes first.
func flushAsyncTasks(state *executionState) ([]asyncTask, []AsyncResolveResult) {
	filtered := make([]asyncTask, 0, len(state.asyncTaskGroup))
	for _, at := range state.asyncTaskGroup {
		if state.hasNullifiedPrefix(at.ResponsePath) {
			continue
		}
		filtered = append(filtered, at)
	}

	tasks := make([]AsyncResolveTask, len(filtered))
	for i, at := range filtered {
		tasks[i] = at.Task
	}

	state.asyncTaskGroup = nil

	results := state.runtime.BatchResolveAsync(state.context, tasks)
	return filtered, results
}

// completeAsyncField completes a single batched result, with non-null
// propagation and pruning. Writes target responseRoot relative to the pass
// base, so deferred units write into their own patch tree.
func completeAsyncField(state *executionState, at asyncTask, res AsyncResolveResult, responseRoot map[string]any) {
	path := at.ResponsePath
	if state.hasNullifiedPrefix(path) {
		return
	}
	relPath := path[state.baseLen:]

	if res.Error != nil {
		state.errors = append(state.errors, GraphQLError{Message: res.Error.Error(), Path: path})
		if schema.IsNonNull(at.FieldType) {
			state.nullifyNearestNullable(responseRoot, path)
			return
		}
		setValueAtPath(responseRoot, relPath, nil)
		return
	}

	completed := completeValue(state, at.FieldType, at.Fields, res.Value, path)

	if schema.IsNonNull(at.FieldType) && isNullish(completed) {
		state.nullifyNearestNullable(responseRoot, path)
		return
	}

	if isNullish(completed) {
		setValueAtPath(responseRoot, relPath, nil)
	} else {
		setValueAtPath(responseRoot, relPath, completed)
	}
}

// completeValue completes a resolved value against its schema type.
func completeValue(state *executionState, fieldType *schema.TypeRef, fields []*language.Field, result any, path Path) any {
	if schema.IsNonNull(fieldType) {
		if isNullish(result) {
			if !state.hasErrorAtPath(path) {
				state.addError(fmt.Sprintf("Cannot return null for non-nullable field %s", pathToString(path)), path)
			}
			return nil
		}
		completed := completeValue(state, schema.Unwrap(fieldType), fields, result, path)
		if isNullish(completed) {
			// Error already recorded at the original path; propagate only.
			return nil
		}
		return completed
	}

	if isNullish(result) {
		return nil
	}

	if schema.IsList(fieldType) {
		return completeListValue(state, fieldType, fields, result, path)
	}

	namedType := schema.GetNamedType(fieldType)
	typeObj := state.schema.Types[namedType]
	if typeObj == nil {
		state.addError(fmt.Sprintf("Unknown type: %s", namedType), path)
		return nil
	}

	switch typeObj.Kind {
	case schema.TypeKindScalar, schema.TypeKindEnum:
		serialized, err := state.runtime.SerializeLeafValue(state.context, namedType, result)
		if err != nil {
			state.addError(err.Error(), path)
			return nil
		}
		return serialized
	case schema.TypeKindObject:
		return completeObjectValue(state, typeObj, fields, result, path)
	case schema.TypeKindInterface:
		return completeAbstractValue(state, namedType, fields, result, path)
	default:
		state.addError(fmt.Sprintf("Cannot complete value of unexpected type: %s", typeObj.Kind), path)
		return nil
	}
}

func completeListValue(state *executionState, listType *schema.TypeRef, fields []*language.Field, result any, path Path) any {
	var items []any
	if direct, ok := result.([]any); ok {
		items = direct
	} else {
		rv := reflect.ValueOf(result)
		if rv.Kind() != reflect.Slice {
			state.addError(fmt.Sprintf("Expected list value, got %T", result), path)
			return nil
		}
		items = make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			items[i] = rv.Index(i).Interface()
		}
	}

	inner := schema.Unwrap(listType)
	completed := make([]any, len(items))
	for i, item := range items {
		p := appendPath(path, i)
		if !schema.IsNonNull(inner) {
			state.markNullablePath(p)
		}
		v := completeValue(state, inner, fields, item, p)
		if schema.IsNonNull(inner) && isNullish(v) {
			// A null element under a non-null inner type nullifies the list.
			state.markNullifiedPrefix(path)
			return nil
		}
		completed[i] = v
	}
	return completed
}

func completeObjectValue(state *executionState, objectType *schema.Type, fields []*language.Field, result any, path Path) any {
	sub := mergeSelectionSets(fields)
	return executeSelectionSet(state, objectType, sub, result, path)
}

func completeAbstractValue(state *executionState, abstractTypeName string, fields []*language.Field, result any, path Path) any {
	typeName, err := state.runtime.ResolveType(state.context, abstractTypeName, result)
	if err != nil {
		state.addError(err.Error(), path)
		return nil
	}
	objectType := state.schema.Types[typeName]
	if objectType == nil || objectType.Kind != schema.TypeKindObject {
		state.addError(fmt.Sprintf("Abstract type %s must resolve to an Object type at runtime. Got: %s", abstractTypeName, typeName), path)
		return nil
	}
	return completeObjectValue(state, objectType, fields, result, path)
}

func pathToString(path Path) string {
	result := ""
	for i, elem := range path {
		if i > 0 {
			result += "."
		}
		switch v := elem.(type) {
		case string:
			result += v
		case int:
			result += fmt.Sprintf("[%d]", v)
		}
	}
	return result
}

func appendPath(path Path, elem PathElement) Path {
	newPath := make(Path, len(path)+1)
	copy(newPath, path)
	newPath[len(path)] = elem
	return newPath
}

// Prefix tombstone helpers.
func (s *executionState) markNullifiedPrefix(p Path) {
	key := pathToString(p)
	if key != "" {
		s.nullifiedPrefix[key] = struct{}{}
	}
}

func (s *executionState) hasNullifiedPrefix(p Path) bool {
	if len(s.nullifiedPrefix) == 0 {
		return false
	}
	cur := Path{}
	for _, elem := range p {
		cur = append(cur, elem)
		if _, ok := s.nullifiedPrefix[pathToString(cur)]; ok {
			return true
		}
	}
	return false
}

func (s *executionState) markNullablePath(p Path) {
	s.nullablePath[pathToString(p)] = struct{}{}
}

// nullifyNearestNullable implements non-null propagation for batched fields:
// walking up from the violating path, the closest position where null is
// legal (a nullable field or a nullable list element) is nulled and
// tombstoned. The walk stops at the pass base; with nothing nullable in
// between, the pass result itself becomes null.
func (state *executionState) nullifyNearestNullable(responseRoot map[string]any, p Path) {
	for i := len(p) - 1; i > state.baseLen; i-- {
		prefix := p[:i]
		if _, ok := state.nullablePath[pathToString(prefix)]; ok {
			setValueAtPath(responseRoot, prefix[state.baseLen:], nil)
			state.markNullifiedPrefix(prefix)
			return
		}
	}
	state.rootNullified = true
}

// failPendingTasks nulls fields whose batches never ran because the request
// context ended, recording a located error for each.
func (state *executionState) failPendingTasks(responseRoot map[string]any, cause error) {
	for _, at := range state.asyncTaskGroup {
		if state.hasNullifiedPrefix(at.ResponsePath) {
			continue
		}
		state.errors = append(state.errors, GraphQLError{Message: cause.Error(), Path: at.ResponsePath})
		if schema.IsNonNull(at.FieldType) {
			state.nullifyNearestNullable(responseRoot, at.ResponsePath)
			continue
		}
		setValueAtPath(responseRoot, at.ResponsePath[state.baseLen:], nil)
	}
	state.asyncTaskGroup = nil
}

func getOperation(document *language.QueryDocument, operationName string) *language.OperationDefinition {
	if operationName == "" && len(document.Operations) == 1 {
		return document.Operations[0]
	}
	for _, op := range document.Operations {
		if op.Name == operationName {
			return op
		}
	}
	return nil
}

func typeRefFromAST(t *language.Type) *schema.TypeRef {
	if t == nil {
		return nil
	}
	if t.NonNull {
		return schema.NonNullType(typeRefFromAST(&language.Type{NamedType: t.NamedType, Elem: t.Elem}))
	}
	if t.NamedType != "" {
		return schema.NamedType(t.NamedType)
	}
	if t.Elem != nil {
		return schema.ListType(typeRefFromAST(t.Elem))
	}
	return nil
}

func (state *executionState) addError(message string, path Path) {
	state.errors = append(state.errors, GraphQLError{Message: message, Path: path})
}

// hasErrorAtPath reports whether an error with the given path already exists.
func (state *executionState) hasErrorAtPath(path Path) bool {
	for _, err := range state.errors {
		if reflect.DeepEqual(err.Path, path) {
			return true
		}
	}
	return false
}

func resolveSyncField(state *executionState, objectType string, fieldName string, source any, args map[string]any, path Path) any {
	value, err := state.runtime.ResolveSync(state.context, objectType, fieldName, source, args)
	if err != nil {
		state.addError(err.Error(), path)
		return nil
	}
	return value
}

// setValueAtPath writes value into the response tree at path.
func setValueAtPath(responseRoot map[string]any, path Path, value any) {
	if len(path) == 0 {
		return
	}
	if len(path) == 1 {
		if key, ok := path[0].(string); ok {
			responseRoot[key] = value
			return
		}
	}
	current := any(responseRoot)
	for _, elem := range path[:len(path)-1] {
		switch e := elem.(type) {
		case string:
			m, ok := current.(map[string]any)
			if !ok {
				return
			}
			next, exists := m[e]
			if !exists {
				next = make(map[string]any)
				m[e] = next
			}
			current = next
		case int:
			// Lists are always completed to full length before any write
			// descends into them, so an out-of-range index is a dead path.
			slice, ok := current.([]any)
			if !ok || e >= len(slice) {
				return
			}
			if slice[e] == nil {
				slice[e] = make(map[string]any)
			}
			current = slice[e]
		}
	}
	switch fe := path[len(path)-1].(type) {
	case string:
		if m, ok := current.(map[string]any); ok {
			m[fe] = value
		}
	case int:
		if slice, ok := current.([]any); ok && fe < len(slice) {
			slice[fe] = value
		}
	}
}

// mergeAtPath merges the fields of data into the object node at path,
// used when folding deferred fragments back into a complete response.
func mergeAtPath(responseRoot map[string]any, path Path, data map[string]any) {
	current := any(responseRoot)
	for _, elem := range path {
		switch e := elem.(type) {
		case string:
			m, ok := current.(map[string]any)
			if !ok {
				return
			}
			current = m[e]
		case int:
			slice, ok := current.([]any)
			if !ok || e >= len(slice) {
				return
			}
			current = slice[e]
		}
	}
	if m, ok := current.(map[string]any); ok {
		for k, v := range data {
			m[k] = v
		}
	}
}

// mergeSelectionSets merges selection sets from multiple fields.
func mergeSelectionSets(fields []*language.Field) language.SelectionSet {
	var merged language.SelectionSet
	for _, f := range fields {
		merged = append(merged, f.SelectionSet...)
	}
	return merged
}

// isNullish returns true for nil interfaces and typed nils.
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
