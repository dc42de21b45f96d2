package hkx

import (
	"fmt"
	"strings"

	"github.com/hkxedit/hkxedit/internal/tree"
)

// SkeletonFile is a rig file. Every object in it is essential.
type SkeletonFile struct {
	*File
}

// LoadSkeleton loads a skeleton file.
func LoadSkeleton(path string, opts Options) (*SkeletonFile, error) {
	f, err := Load(path, opts)
	if err != nil {
		return nil, err
	}
	if _, ok := f.FirstOfClass("hkaSkeleton"); !ok {
		return nil, fmt.Errorf("%s: %w: no hkaSkeleton", path, ErrMalformed)
	}
	f.SetEssential(func(string) bool { return true })
	return &SkeletonFile{File: f}, nil
}

// Bones returns the bone names of every hkaSkeleton, in file order.
func (s *SkeletonFile) Bones() []string {
	var bones []string
	for _, id := range s.ObjectsByClass("hkaSkeleton") {
		bones = append(bones, s.childNames(s.Param(id, "bones"), "name")...)
	}
	return bones
}

// childNames collects the named param text of each hkobject under list.
func (f *File) childNames(list tree.NodeID, param string) []string {
	var names []string
	for _, child := range f.doc.Children(list) {
		names = append(names, f.doc.ParamText(child, param))
	}
	return names
}

// cstrings collects the text of each hkcstring under list.
func (f *File) cstrings(list tree.NodeID) []string {
	var names []string
	for _, child := range f.doc.Children(list) {
		names = append(names, strings.TrimSpace(f.doc.Text(child)))
	}
	return names
}

var characterEssentials = map[string]bool{
	"hkRootLevelContainer":    true,
	"hkbCharacterData":        true,
	"hkbCharacterStringData":  true,
	"hkbVariableValueSet":     true,
	"hkbMirroredSkeletonInfo": true,
}

// CharacterFile describes a character: its rig, behavior and animations.
type CharacterFile struct {
	*File
	stringData string
}

// LoadCharacter loads a character file and locates its string data.
func LoadCharacter(path string, opts Options) (*CharacterFile, error) {
	f, err := Load(path, opts)
	if err != nil {
		return nil, err
	}
	data, ok := f.FirstOfClass("hkbCharacterData")
	if !ok {
		return nil, fmt.Errorf("%s: %w: no hkbCharacterData", path, ErrMalformed)
	}
	stringData, ok := f.RefTarget(data, "stringData")
	if !ok || f.Class(stringData) != "hkbCharacterStringData" {
		return nil, fmt.Errorf("%s: %w: character data %s has no string data", path, ErrMalformed, data)
	}
	f.SetEssential(func(id string) bool {
		return characterEssentials[f.Class(id)]
	})
	return &CharacterFile{File: f, stringData: stringData}, nil
}

func (c *CharacterFile) AnimationNames() []string {
	return c.cstrings(c.Param(c.stringData, "animationNames"))
}

func (c *CharacterFile) PropertyNames() []string {
	return c.cstrings(c.Param(c.stringData, "characterPropertyNames"))
}

// BehaviorFilename is the project-relative path of the character's behavior.
func (c *CharacterFile) BehaviorFilename() string {
	return c.ParamText(c.stringData, "behaviorFilename")
}

func (c *CharacterFile) RigName() string {
	return c.ParamText(c.stringData, "rigName")
}
