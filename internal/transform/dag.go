// Airlake - Air Quality Extraction and Analytics Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airlake

package transform

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strings"

	"github.com/tomtom215/airlake/internal/database"
)

var (
	// ErrInvalidScriptName is returned for files not named NNN_name.sql.
	ErrInvalidScriptName = errors.New("invalid transform script name")
	// ErrUnknownDependency is returned when a depends directive names a
	// step that does not exist.
	ErrUnknownDependency = errors.New("unknown transform dependency")
	// ErrCycle is returned when the depends directives form a cycle.
	ErrCycle = errors.New("transform dependency cycle")
	// ErrDuplicateStep is returned when two files resolve to one step name.
	ErrDuplicateStep = errors.New("duplicate transform step")
)

var scriptNamePattern = regexp.MustCompile(`^(\d+)_([a-z0-9_]+)\.sql$`)

const dependsDirective = "-- depends:"

// Step is one named transform script.
type Step struct {
	Name      string
	Script    database.Script
	DependsOn []string
}

// Load reads every *.sql file in fsys as a step, in filename order.
func Load(fsys fs.FS) ([]Step, error) {
	scripts, err := database.ReadScripts(fsys)
	if err != nil {
		return nil, err
	}

	steps := make([]Step, 0, len(scripts))
	seen := make(map[string]string, len(scripts))
	for _, s := range scripts {
		m := scriptNamePattern.FindStringSubmatch(s.Name)
		if m == nil {
			return nil, fmt.Errorf("%w: %s (want NNN_name.sql, lowercase)", ErrInvalidScriptName, s.Name)
		}
		name := m[2]
		if prev, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: %q defined by %s and %s", ErrDuplicateStep, name, prev, s.Name)
		}
		seen[name] = s.Name
		steps = append(steps, Step{Name: name, Script: s, DependsOn: parseDepends(s.Body)})
	}
	return steps, nil
}

// parseDepends reads "-- depends: a, b" directives from the comment block
// at the top of a script.
func parseDepends(body string) []string {
	var deps []string
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "--") {
			break
		}
		rest, ok := strings.CutPrefix(line, dependsDirective)
		if !ok {
			continue
		}
		for _, d := range strings.Split(rest, ",") {
			if d = strings.TrimSpace(d); d != "" {
				deps = append(deps, d)
			}
		}
	}
	return deps
}

// Order sorts steps so every step runs after its dependencies (Kahn's
// algorithm). Among steps that are ready at the same time the input order
// wins, so scripts without directives run in filename order.
func Order(steps []Step) ([]Step, error) {
	index := make(map[string]int, len(steps))
	for i, s := range steps {
		index[s.Name] = i
	}

	indegree := make([]int, len(steps))
	dependents := make([][]int, len(steps))
	for i, s := range steps {
		for _, dep := range s.DependsOn {
			j, ok := index[dep]
			if !ok {
				return nil, fmt.Errorf("%w: %s depends on %q", ErrUnknownDependency, s.Script.Name, dep)
			}
			if j == i {
				return nil, fmt.Errorf("%w: %s depends on itself", ErrCycle, s.Script.Name)
			}
			indegree[i]++
			dependents[j] = append(dependents[j], i)
		}
	}

	var ready []int
	for i := range steps {
		if indegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	ordered := make([]Step, 0, len(steps))
	for len(ready) > 0 {
		sort.Ints(ready)
		i := ready[0]
		ready = ready[1:]
		ordered = append(ordered, steps[i])
		for _, d := range dependents[i] {
			indegree[d]--
			if indegree[d] == 0 {
				ready = append(ready, d)
			}
		}
	}

	if len(ordered) != len(steps) {
		var stuck []string
		for i, n := range indegree {
			if n > 0 {
				stuck = append(stuck, steps[i].Name)
			}
		}
		return nil, fmt.Errorf("%w among %s", ErrCycle, strings.Join(stuck, ", "))
	}
	return ordered, nil
}
