package main

import (
	"fmt"
	"os"

	"github.com/wbruna/critbit89/set"
	arena "github.com/wbruna/critbit89/set_arena"
)

func main() {
	s := set.NewSet()
	for _, key := range []string{"c", "a1", "a2", "a3", "a22", "bb"} {
		if err := s.Insert([]byte(key)); err != nil {
			fmt.Fprintf(os.Stderr, "insert %q: %v\n", key, err)
		}
	}

	s.Print()

	fmt.Println("keys with prefix \"a\":")
	s.Walk([]byte("a"), func(key []byte) int {
		fmt.Printf("  %s\n", key)
		return 0
	})

	if err := s.Delete([]byte("a2")); err != nil {
		fmt.Fprintf(os.Stderr, "delete: %v\n", err)
	}

	fmt.Println("after deleting \"a2\":")
	s.Print()

	// the same engine over a pooled layout
	p := arena.NewSet()
	s.Walk(nil, func(key []byte) int {
		p.Insert(key)
		return 0
	})

	fmt.Println("arena copy:")
	p.Print()
}
