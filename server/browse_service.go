package server

import (
	"context"
	"fmt"
	"sort"

	"connectrpc.com/connect"

	"github.com/chazu/bluejay/vm"
)

// BrowseService implements the bluejay.v1.BrowseService Connect handlers.
// Without a session ID it browses a fresh runtime, which holds only the
// native classes.
type BrowseService struct {
	sessions *SessionStore
}

// NewBrowseService creates a BrowseService.
func NewBrowseService(sessions *SessionStore) *BrowseService {
	return &BrowseService{sessions: sessions}
}

// ListClasses returns every class bound in the session's globals.
func (s *BrowseService) ListClasses(
	ctx context.Context,
	req *connect.Request[ListClassesRequest],
) (*connect.Response[ListClassesResponse], error) {
	worker, release, err := lookupWorker(s.sessions, req.Msg.SessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	result, err := worker.Do(func(rt *vm.Runtime) any {
		classes := rt.Classes()
		infos := make([]ClassInfo, 0, len(classes))
		for _, cls := range classes {
			infos = append(infos, classToInfo(cls))
		}
		sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
		return &ListClassesResponse{Classes: infos}
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(result.(*ListClassesResponse)), nil
}

// DescribeClass returns a class's members, its superclass chain and its
// direct subclasses.
func (s *BrowseService) DescribeClass(
	ctx context.Context,
	req *connect.Request[DescribeClassRequest],
) (*connect.Response[DescribeClassResponse], error) {
	if req.Msg.Name == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("name is required"))
	}

	worker, release, err := lookupWorker(s.sessions, req.Msg.SessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	result, err := worker.Do(func(rt *vm.Runtime) any {
		v, ok := rt.Lookup(req.Msg.Name)
		if !ok {
			return fmt.Errorf("class %q not found", req.Msg.Name)
		}
		cls, ok := v.(*vm.Class)
		if !ok {
			return fmt.Errorf("%q is a %s, not a class", req.Msg.Name, vm.TypeName(v))
		}

		resp := &DescribeClassResponse{Class: classToInfo(cls)}
		for sup := cls.Superclass; sup != nil; sup = sup.Superclass {
			resp.Ancestors = append(resp.Ancestors, sup.Name)
		}
		for _, other := range rt.Classes() {
			if other.Superclass == cls {
				resp.Subclasses = append(resp.Subclasses, other.Name)
			}
		}
		return resp
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	if errVal, ok := result.(error); ok {
		return nil, connect.NewError(connect.CodeNotFound, errVal)
	}
	return connect.NewResponse(result.(*DescribeClassResponse)), nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// classToInfo lists a class's own members followed by the inherited ones
// it does not override.
func classToInfo(cls *vm.Class) ClassInfo {
	info := ClassInfo{
		Name:   cls.Name,
		Native: cls.Native,
	}
	if cls.Superclass != nil {
		info.Superclass = cls.Superclass.Name
	}

	seen := make(map[string]bool)
	for k := cls; k != nil; k = k.Superclass {
		names := make([]string, 0, len(k.Statics))
		for name := range k.Statics {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			if seen[name] {
				continue
			}
			seen[name] = true
			m := memberInfo(name, k.Statics[name])
			if k != cls {
				m.Inherited = k.Name
			}
			info.Members = append(info.Members, m)
		}
	}
	return info
}

func memberInfo(name string, v vm.Value) MemberInfo {
	switch m := v.(type) {
	case *vm.Method:
		return MemberInfo{Name: name, Arity: len(m.Decl.Params)}
	case *vm.NativeMethod:
		return MemberInfo{Name: name, Arity: m.Arity(), Native: true}
	}
	return MemberInfo{Name: name, Arity: -1}
}
