package cohort

import "gotrial/domain/core"

// Study variable keys. These are the canonical column names used across
// generation, analysis, rendering, and export.
const (
	VarParticipantID         core.VariableKey = "ParticipantID"
	VarAge                   core.VariableKey = "Age"
	VarGender                core.VariableKey = "Gender"
	VarProgrammingExperience core.VariableKey = "ProgrammingExperience"
	VarLLMUsage              core.VariableKey = "LLMUsage"
	VarHerbalBlend           core.VariableKey = "HerbalBlend"
	VarInitialSelfEfficacy   core.VariableKey = "InitialSelfEfficacy"
	VarFinalSelfEfficacy     core.VariableKey = "FinalSelfEfficacy"
	VarInitialAnxiety        core.VariableKey = "InitialAnxiety"
	VarFinalAnxiety          core.VariableKey = "FinalAnxiety"
	VarErrorsIdentified      core.VariableKey = "ErrorsIdentified"
	VarCompletionTime        core.VariableKey = "CompletionTime"
	VarPerformance           core.VariableKey = "Performance"
	VarEEGAlpha              core.VariableKey = "EEGAlpha"
	VarEEGBeta               core.VariableKey = "EEGBeta"
	VarECGHeartRate          core.VariableKey = "ECG_HR"
	VarEDASkinConductance    core.VariableKey = "EDA_SCR"
	VarPOGFixations          core.VariableKey = "POGFixations"
	VarPOGFixationDuration   core.VariableKey = "POGFixationDuration"
	VarPOGPupilDiameter      core.VariableKey = "POGPupilDiameter"
	VarPOGBlinkRate          core.VariableKey = "POGBlinkRate"
)

// Categorical level orderings. Dummy expansion and group plots follow
// these orders, so they are fixed.
var (
	GenderLevels     = []string{"Male", "Female", "Other"}
	ExperienceLevels = []string{"Beginner", "Intermediate", "Advanced"}
)

// StudySchema returns the full column declaration for a generated cohort,
// in generation order.
func StudySchema() Schema {
	return Schema{
		{Key: VarParticipantID, Type: TypeIdentifier},
		{Key: VarAge, Type: TypeNumeric},
		{Key: VarGender, Type: TypeCategorical, Levels: GenderLevels},
		{Key: VarProgrammingExperience, Type: TypeCategorical, Levels: ExperienceLevels},
		{Key: VarLLMUsage, Type: TypeBinary},
		{Key: VarHerbalBlend, Type: TypeBinary},
		{Key: VarInitialSelfEfficacy, Type: TypeNumeric},
		{Key: VarFinalSelfEfficacy, Type: TypeNumeric},
		{Key: VarInitialAnxiety, Type: TypeNumeric},
		{Key: VarFinalAnxiety, Type: TypeNumeric},
		{Key: VarErrorsIdentified, Type: TypeNumeric},
		{Key: VarCompletionTime, Type: TypeNumeric},
		{Key: VarPerformance, Type: TypeNumeric},
		{Key: VarEEGAlpha, Type: TypeNumeric},
		{Key: VarEEGBeta, Type: TypeNumeric},
		{Key: VarECGHeartRate, Type: TypeNumeric},
		{Key: VarEDASkinConductance, Type: TypeNumeric},
		{Key: VarPOGFixations, Type: TypeNumeric},
		{Key: VarPOGFixationDuration, Type: TypeNumeric},
		{Key: VarPOGPupilDiameter, Type: TypeNumeric},
		{Key: VarPOGBlinkRate, Type: TypeNumeric},
	}
}

// OutcomeVariables are the columns the correlation matrix and the
// between-arm comparisons cover.
func OutcomeVariables() []core.VariableKey {
	return []core.VariableKey{VarFinalSelfEfficacy, VarFinalAnxiety, VarPerformance}
}

// DefaultPredictors are the regression terms for the Performance model
func DefaultPredictors() []core.VariableKey {
	return []core.VariableKey{VarLLMUsage, VarHerbalBlend, VarInitialSelfEfficacy, VarInitialAnxiety}
}

// DefaultImportanceModel is the batch importance-performance selection:
// post-task self-efficacy against the composite performance score. A single
// predictor keeps the ceiling curve defined.
func DefaultImportanceModel() (predictors []core.VariableKey, outcome core.VariableKey) {
	return []core.VariableKey{VarFinalSelfEfficacy}, VarPerformance
}

// DroppedFromFeatures lists raw columns excluded before preprocessing.
// Performance is dropped here and re-attached unscaled as the target.
func DroppedFromFeatures() []core.VariableKey {
	return []core.VariableKey{VarParticipantID, VarErrorsIdentified, VarCompletionTime, VarPerformance}
}
