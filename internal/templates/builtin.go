package templates

func p(name, value string) string {
	return `<hkparam name="` + name + `">` + value + `</hkparam>`
}

func list(name string) string {
	return `<hkparam name="` + name + `" numelements="0"></hkparam>`
}

func eventProperty(name string) string {
	return `<hkparam name="` + name + `"><hkobject>` + p("id", "-1") + p("payload", "null") + `</hkobject></hkparam>`
}

const (
	nodeHeader     = `<hkparam name="variableBindingSet">null</hkparam><hkparam name="userData">0</hkparam><hkparam name="name"></hkparam>`
	modifierHeader = nodeHeader + `<hkparam name="enable">true</hkparam>`
)

var builtin = []Class{
	NewFragmentClass("hkbStateMachine", "0x816c1dcb", nodeHeader+
		eventProperty("eventToSendWhenStateOrTransitionChanges")+
		p("startStateChooser", "null")+
		p("startStateId", "0")+
		p("returnToPreviousStateEventId", "-1")+
		p("randomTransitionEventId", "-1")+
		p("transitionToNextHigherStateEventId", "-1")+
		p("transitionToNextLowerStateEventId", "-1")+
		p("syncVariableIndex", "-1")+
		p("wrapAroundStateId", "false")+
		p("maxSimultaneousTransitions", "32")+
		p("startStateMode", "START_STATE_MODE_DEFAULT")+
		p("selfTransitionMode", "SELF_TRANSITION_MODE_NO_TRANSITION")+
		list("states")+
		p("wildcardTransitions", "null")),

	NewFragmentClass("hkbStateMachineStateInfo", "0xed7f9d0",
		p("variableBindingSet", "null")+
			list("listeners")+
			p("enterNotifyEvents", "null")+
			p("exitNotifyEvents", "null")+
			p("transitions", "null")+
			p("generator", "null")+
			p("name", "")+
			p("stateId", "0")+
			p("probability", "1.000000")+
			p("enable", "true")),

	NewFragmentClass("hkbStateMachineTransitionInfoArray", "0xe397b11e", list("transitions")),

	NewFragmentClass("hkbStateMachineEventPropertyArray", "0xb07b4388", list("events")),

	NewFragmentClass("hkbBlendingTransitionEffect", "0xfd8584fe", nodeHeader+
		p("selfTransitionMode", "SELF_TRANSITION_MODE_CONTINUE_IF_CYCLIC_BLEND_IF_ACYCLIC")+
		p("eventMode", "EVENT_MODE_DEFAULT")+
		p("duration", "0.000000")+
		p("toGeneratorStartTimeFraction", "0.000000")+
		p("flags", "FLAG_IGNORE_FROM_WORLD_FROM_MODEL")+
		p("endMode", "END_MODE_NONE")+
		p("blendCurve", "BLEND_CURVE_SMOOTH")),

	NewFragmentClass("hkbClipGenerator", "0x333b85b9", nodeHeader+
		p("animationName", "")+
		p("triggers", "null")+
		p("cropStartAmountLocalTime", "0.000000")+
		p("cropEndAmountLocalTime", "0.000000")+
		p("startTime", "0.000000")+
		p("playbackSpeed", "1.000000")+
		p("enforcedDuration", "0.000000")+
		p("userControlledTimeFraction", "0.000000")+
		p("animationBindingIndex", "-1")+
		p("mode", "MODE_SINGLE_PLAY")+
		p("flags", "0")),

	NewFragmentClass("hkbClipTriggerArray", "0x59c23a0f", list("triggers")),

	NewFragmentClass("hkbBlenderGenerator", "0x22df7147", nodeHeader+
		p("referencePoseWeightThreshold", "0.000000")+
		p("blendParameter", "1.000000")+
		p("minCyclicBlendParameter", "0.000000")+
		p("maxCyclicBlendParameter", "0.000000")+
		p("indexOfSyncMasterChild", "-1")+
		p("flags", "0")+
		p("subtractLastChild", "false")+
		list("children")),

	NewFragmentClass("hkbBlenderGeneratorChild", "0xe2b384b0",
		p("variableBindingSet", "null")+
			p("generator", "null")+
			p("boneWeights", "null")+
			p("weight", "1.000000")+
			p("worldFromModelWeight", "1.000000")),

	NewFragmentClass("hkbBoneWeightArray", "0xcd902b77",
		p("variableBindingSet", "null")+list("boneWeights")),

	NewFragmentClass("hkbManualSelectorGenerator", "0xd932fab8", nodeHeader+
		list("generators")+
		p("selectedGeneratorIndex", "0")+
		p("currentGeneratorIndex", "0")),

	NewFragmentClass("hkbModifierGenerator", "0x1f81fae6", nodeHeader+
		p("modifier", "null")+
		p("generator", "null")),

	NewFragmentClass("hkbBehaviorReferenceGenerator", "0xfcb5423", nodeHeader+
		p("behaviorName", "")),

	NewFragmentClass("hkbModifierList", "0xa4180ca1", modifierHeader+list("modifiers")),

	NewFragmentClass("hkbEventDrivenModifier", "0x7ed3f44e", modifierHeader+
		p("modifier", "null")+
		p("activateEventId", "-1")+
		p("deactivateEventId", "-1")+
		p("activeByDefault", "false")),

	NewFragmentClass("hkbTimerModifier", "0x338b4879", modifierHeader+
		p("alarmTimeSeconds", "0.000000")+
		eventProperty("alarmEvent")),

	NewFragmentClass("hkbEvaluateExpressionModifier", "0xf900f6be", modifierHeader+
		p("expressions", "null")),

	NewFragmentClass("hkbExpressionDataArray", "0x4b9ee1a2", list("expressionsData")),

	NewFragmentClass("hkbVariableBindingSet", "0x338ad4ff",
		list("bindings")+p("indexOfBindingToEnable", "-1")),

	NewFragmentClass("hkbStringEventPayload", "0xed04256a", p("data", "")),

	NewFragmentClass("hkbExpressionCondition", "0x1c3c1045", p("expression", "")),

	NewFragmentClass("hkbStringCondition", "0x5ab50487", p("conditionString", "")),
}
