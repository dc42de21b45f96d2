package behavior

import (
	"strings"

	"github.com/hkxedit/hkxedit/internal/tree"
)

// Kind names the linked table an integer param indexes into.
type Kind int

const (
	KindNone Kind = iota
	KindVariable
	KindEvent
	KindProperty
)

func (k Kind) String() string {
	switch k {
	case KindVariable:
		return "variable"
	case KindEvent:
		return "event"
	case KindProperty:
		return "property"
	default:
		return "none"
	}
}

// ParseKind accepts the singular or plural table name.
func ParseKind(value string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "variable", "variables", "var", "vars":
		return KindVariable, true
	case "event", "events":
		return KindEvent, true
	case "property", "properties", "prop", "props":
		return KindProperty, true
	default:
		return KindNone, false
	}
}

// rule classifies an hkparam by its name plus an optional structural
// condition. A rule with a sibling condition matches only when the param's
// parent has a sibling param with the given text. A rule with containers
// matches only when the param sits in an anonymous hkobject whose enclosing
// hkparam has one of the listed names. A rule with an owner class matches
// only params placed directly on an object of that class.
type rule struct {
	kind         Kind
	sibling      string
	siblingValue string
	containers   map[string]bool
	ownerClass   string
}

const (
	bindingTypeParam     = "bindingType"
	bindingTypeVariable  = "BINDING_TYPE_VARIABLE"
	bindingTypeCharacter = "BINDING_TYPE_CHARACTER_PROPERTY"
)

// eventContainers are the params holding an hkbEventProperty (or an array of
// them) whose generic "id" field is an event index.
var eventContainers = map[string]bool{
	"event":                                   true,
	"events":                                  true,
	"eventToSend":                             true,
	"eventToSend1":                            true,
	"eventToSend2":                            true,
	"eventToSend3":                            true,
	"eventToSendWhenStateOrTransitionChanges": true,
	"alarmEvent":                              true,
	"errorOutEvent":                           true,
	"closeToGroundEvent":                      true,
	"contactEvent":                            true,
	"triggerEvent":                            true,
	"eventToCheckFor":                         true,
	"EventToFreezeBlendValue":                 true,
	"EventToCrossBlend":                       true,
	"sendToAttacherOnAttach":                  true,
	"sendToAttacheeOnAttach":                  true,
	"sendToAttacherOnDetach":                  true,
	"sendToAttacheeOnDetach":                  true,
	"sensingEvent":                            true,
}

// sequencedDataContainers hold hkbVariableSequencedData written inline.
var sequencedDataContainers = map[string]bool{
	"variableSequencedData": true,
}

var rules = map[string][]rule{
	"variableIndex": {
		{kind: KindVariable, sibling: bindingTypeParam, siblingValue: bindingTypeVariable},
		{kind: KindProperty, sibling: bindingTypeParam, siblingValue: bindingTypeCharacter},
		{kind: KindVariable, ownerClass: "hkbVariableSequencedData"},
		{kind: KindVariable, containers: sequencedDataContainers},
	},
	"syncVariableIndex":       {{kind: KindVariable}},
	"assignmentVariableIndex": {{kind: KindVariable}},

	"eventId":                            {{kind: KindEvent}},
	"enterEventId":                       {{kind: KindEvent}},
	"exitEventId":                        {{kind: KindEvent}},
	"activateEventId":                    {{kind: KindEvent}},
	"deactivateEventId":                  {{kind: KindEvent}},
	"randomTransitionEventId":            {{kind: KindEvent}},
	"transitionToNextHigherStateEventId": {{kind: KindEvent}},
	"transitionToNextLowerStateEventId":  {{kind: KindEvent}},
	"returnToPreviousStateEventId":       {{kind: KindEvent}},
	"assignmentEventIndex":               {{kind: KindEvent}},
	"enableEventId":                      {{kind: KindEvent}},
	"disableEventId":                     {{kind: KindEvent}},
	"id":                                 {{kind: KindEvent, containers: eventContainers}},
}

// Classify reports which linked table node's integer text indexes into.
func Classify(doc *tree.Document, node tree.NodeID) Kind {
	if doc.Tag(node) != "hkparam" {
		return KindNone
	}
	candidates, ok := rules[doc.Attr(node, "name")]
	if !ok {
		return KindNone
	}
	for _, r := range candidates {
		if r.matches(doc, node) {
			return r.kind
		}
	}
	return KindNone
}

func (r rule) matches(doc *tree.Document, node tree.NodeID) bool {
	parent := doc.Parent(node)
	if r.sibling != "" {
		sibling := doc.GetByName(parent, r.sibling)
		if strings.TrimSpace(doc.Text(sibling)) != r.siblingValue {
			return false
		}
	}
	if r.ownerClass != "" && doc.Attr(parent, "class") != r.ownerClass {
		return false
	}
	if r.containers != nil {
		if doc.Tag(parent) != "hkobject" {
			return false
		}
		if _, named := doc.LookupAttr(parent, "name"); named {
			return false
		}
		container := doc.Parent(parent)
		if doc.Tag(container) != "hkparam" || !r.containers[doc.Attr(container, "name")] {
			return false
		}
	}
	return true
}

func IsVarNode(doc *tree.Document, node tree.NodeID) bool {
	return Classify(doc, node) == KindVariable
}

func IsEvtNode(doc *tree.Document, node tree.NodeID) bool {
	return Classify(doc, node) == KindEvent
}

func IsPropNode(doc *tree.Document, node tree.NodeID) bool {
	return Classify(doc, node) == KindProperty
}
