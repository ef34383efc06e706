// Package shader captures the layout conventions of Minecraft shader packs:
// which file names the shader loader treats as program entry points, which
// extensions mark GLSL sources, and how #include directives are written and
// resolved.
package shader

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// MaxIncludeDepth bounds include recursion when mirroring a file tree.
// Shader packs nest includes a handful of levels deep; anything past this is
// a cycle or a mistake.
const MaxIncludeDepth = 10

var stageExtensions = []string{"fsh", "vsh", "gsh", "csh"}

// BaseExtensions are the file extensions recognized as GLSL sources out of
// the box. The extraExtension setting can add to the set at runtime.
var BaseExtensions = []string{
	"vsh", "gsh", "fsh", "csh",
	"vert", "geom", "frag", "comp",
	"vertex", "geometry", "fragment", "compute",
	"glsl",
}

var (
	includePattern   = regexp.MustCompile(`^\s*#include "(.+)"`)
	dimensionPattern = regexp.MustCompile(`^world-?\d+$`)
)

var topLevelNames = buildTopLevelNames()

// buildTopLevelNames enumerates every file name the shader loader runs as a
// program: the composite, deferred, prepare and shadowcomp passes (bare and
// numbered 1-99), the gbuffers family, the shadow variants and final, each
// across the four stage extensions, plus the lettered compute dispatch
// variants which only exist as .csh.
func buildTopLevelNames() map[string]struct{} {
	numbered := []string{"composite", "deferred", "prepare", "shadowcomp"}
	singles := []string{
		"composite_pre", "deferred_pre", "final",
		"gbuffers_armor_glint", "gbuffers_basic", "gbuffers_beaconbeam",
		"gbuffers_block", "gbuffers_clouds", "gbuffers_damagedblock",
		"gbuffers_entities", "gbuffers_entities_glowing", "gbuffers_hand",
		"gbuffers_hand_water", "gbuffers_item", "gbuffers_line",
		"gbuffers_skybasic", "gbuffers_skytextured", "gbuffers_spidereyes",
		"gbuffers_terrain", "gbuffers_terrain_cutout",
		"gbuffers_terrain_cutout_mip", "gbuffers_terrain_solid",
		"gbuffers_textured", "gbuffers_textured_lit", "gbuffers_water",
		"gbuffers_weather", "shadow", "shadow_cutout", "shadow_solid",
	}

	set := make(map[string]struct{}, 1716)
	for _, ext := range stageExtensions {
		for _, name := range numbered {
			set[name+"."+ext] = struct{}{}
			for i := 1; i <= 99; i++ {
				set[fmt.Sprintf("%s%d.%s", name, i, ext)] = struct{}{}
			}
		}
		for _, name := range singles {
			set[name+"."+ext] = struct{}{}
		}
	}
	for c := 'a'; c <= 'z'; c++ {
		for _, name := range numbered {
			set[fmt.Sprintf("%s_%c.csh", name, c)] = struct{}{}
			for i := 1; i <= 99; i++ {
				set[fmt.Sprintf("%s%d_%c.csh", name, i, c)] = struct{}{}
			}
		}
	}
	return set
}

// IsTopLevel reports whether relPath, relative to the pack root, names a
// program entry point: shaders/<name> or shaders/<dimension>/<name> where
// <dimension> is a world folder like world0 or world-1.
func IsTopLevel(relPath string) bool {
	parts := strings.Split(filepath.ToSlash(relPath), "/")
	switch len(parts) {
	case 2:
		if parts[0] != "shaders" {
			return false
		}
	case 3:
		if parts[0] != "shaders" || !dimensionPattern.MatchString(parts[1]) {
			return false
		}
	default:
		return false
	}
	_, ok := topLevelNames[parts[len(parts)-1]]
	return ok
}

// ScanPrograms lists the program entry points present under shadersDir:
// files at its top level plus files one level down inside dimension
// folders. Returned paths are relative to shadersDir, in directory order.
// A missing or unreadable directory yields nil.
func ScanPrograms(shadersDir string) []string {
	entries, err := os.ReadDir(shadersDir)
	if err != nil {
		return nil
	}
	var programs []string
	for _, entry := range entries {
		if entry.IsDir() {
			if !dimensionPattern.MatchString(entry.Name()) {
				continue
			}
			nested, err := os.ReadDir(filepath.Join(shadersDir, entry.Name()))
			if err != nil {
				continue
			}
			for _, sub := range nested {
				if sub.IsDir() {
					continue
				}
				if IsTopLevel("shaders/" + entry.Name() + "/" + sub.Name()) {
					programs = append(programs, filepath.Join(entry.Name(), sub.Name()))
				}
			}
			continue
		}
		if IsTopLevel("shaders/" + entry.Name()) {
			programs = append(programs, entry.Name())
		}
	}
	return programs
}

// ExtensionSet builds the recognized extension set from BaseExtensions plus
// any extras. Extras are trimmed of whitespace and leading dots; empty
// entries are dropped.
func ExtensionSet(extra ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(BaseExtensions)+len(extra))
	for _, ext := range BaseExtensions {
		set[ext] = struct{}{}
	}
	for _, ext := range extra {
		ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
		if ext != "" {
			set[ext] = struct{}{}
		}
	}
	return set
}

// HasShaderExtension reports whether path carries an extension from set.
func HasShaderExtension(path string, set map[string]struct{}) bool {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return false
	}
	_, ok := set[ext]
	return ok
}

// Include is a single #include directive found in a document.
type Include struct {
	Path  string // the path as written between the quotes
	Line  int    // 0-based line of the directive
	Start int    // byte column of the first path character
	End   int    // byte column one past the last path character
}

// ScanIncludes returns every #include directive in content together with the
// position of its quoted path. Directives may be indented; anything after
// the closing quote is ignored.
func ScanIncludes(content string) []Include {
	var found []Include
	for i, line := range strings.Split(content, "\n") {
		m := includePattern.FindStringSubmatchIndex(line)
		if m == nil {
			continue
		}
		found = append(found, Include{
			Path:  line[m[2]:m[3]],
			Line:  i,
			Start: m[2],
			End:   m[3],
		})
	}
	return found
}

// Resolve maps an include path to a filesystem location. Paths beginning
// with "/" are rooted at the pack's shaders directory; anything else is
// relative to the directory of the including file.
func Resolve(includePath, shadersDir, fromDir string) string {
	if strings.HasPrefix(includePath, "/") {
		return filepath.Join(shadersDir, filepath.FromSlash(includePath))
	}
	return filepath.Join(fromDir, filepath.FromSlash(includePath))
}
