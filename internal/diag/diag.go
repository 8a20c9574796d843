// Package diag prints an error chain for diagnostics, one layer per line,
// with an optional go-spew dump of each layer's fields, which are otherwise
// invisible from Error() alone.
package diag

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/davecgh/go-spew/spew"
)

// PrintErrChain walks err's Unwrap chain, printing each layer's dynamic
// type and message.
func PrintErrChain(err error) {
	if err == nil {
		fmt.Println("<nil>")
		return
	}
	for i, e := 0, err; e != nil; i, e = i+1, errors.Unwrap(e) {
		fmt.Printf("[%d] %T: %v\n", i, e, e)
	}
}

// PrintErrChainDebug is PrintErrChain plus a spew.Dump of each layer and its
// exported struct fields, for tracking down a LogIO or SchemaMismatch
// failure's exact payload.
func PrintErrChainDebug(err error) {
	for i := 0; err != nil; err = errors.Unwrap(err) {
		fmt.Printf("[%d] %T\n", i, err)
		fmt.Printf("   Error(): %v\n", err)

		spew.Dump(err)

		rv := reflect.ValueOf(err)
		rt := reflect.TypeOf(err)
		if rt.Kind() == reflect.Ptr {
			rv = rv.Elem()
			rt = rt.Elem()
		}
		if rt.Kind() == reflect.Struct {
			for j := 0; j < rt.NumField(); j++ {
				f := rt.Field(j)
				v := rv.Field(j)
				if v.CanInterface() {
					fmt.Printf("   Field %s (%s): %+v\n", f.Name, f.Type, v.Interface())
				}
			}
		}

		if u, ok := err.(interface{ Unwrap() error }); ok {
			fmt.Printf("   Has Unwrap(): %T\n", u.Unwrap())
		}

		i++
	}
}
