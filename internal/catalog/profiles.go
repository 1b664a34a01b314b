package catalog

const llama3Template = `<|begin_of_text|><|start_header_id|>system<|end_header_id|>

{system_prompt}<|eot_id|><|start_header_id|>user<|end_header_id|>

{prompt}<|eot_id|><|start_header_id|>assistant<|end_header_id|>
`

var defaultLevels = []string{"Q8_0", "Q6_K", "Q5_K_M", "Q4_K_M", "Q3_K_M", "Q2_K"}

var llamaLanguages = []string{"en", "de", "fr", "it", "pt", "hi", "es", "th"}

var profiles = map[string]Profile{
	"llama-3.2-1b": {
		Name:            "llama-3.2-1b",
		ModelName:       "Llama-3.2-1B-Instruct",
		BaseModel:       "meta-llama/Llama-3.2-1B-Instruct",
		License:         "llama3.2",
		SourcePrecision: "f16",
		Levels:          defaultLevels,
		Languages:       llamaLanguages,
		Tags:            []string{"gguf", "quantized", "llama", "llama-3.2", "llama-cpp"},
		Description:     "A compact 1B instruction-tuned model for on-device chat, summarization and simple tool use.",
		PromptTemplate:  llama3Template,
		Sampling:        Sampling{Temperature: 0.7, TopP: 0.9, TopK: 40, RepeatPenalty: 1.1, ContextLength: 8192},
		sizing: map[string][2]string{
			"Q8_0":   {"~1.6 GB", "Highest fidelity; pick this when memory is not a concern."},
			"Q6_K":   {"~1.3 GB", "Near-lossless at a smaller size."},
			"Q5_K_M": {"~1.1 GB", "Best balance of quality and size for most machines."},
			"Q4_K_M": {"~1.0 GB", "Recommended default for laptops and phones."},
			"Q3_K_M": {"~0.9 GB", "Low-memory devices; expect some quality loss."},
			"Q2_K":   {"~0.8 GB", "Experiments only; degradation is noticeable at 1B."},
		},
	},
	"llama-3.2-3b": {
		Name:            "llama-3.2-3b",
		ModelName:       "Llama-3.2-3B-Instruct",
		BaseModel:       "meta-llama/Llama-3.2-3B-Instruct",
		License:         "llama3.2",
		SourcePrecision: "f16",
		Levels:          defaultLevels,
		Languages:       llamaLanguages,
		Tags:            []string{"gguf", "quantized", "llama", "llama-3.2", "llama-cpp"},
		Description:     "A 3B instruction-tuned model that balances quality and footprint for local assistants.",
		PromptTemplate:  llama3Template,
		Sampling:        Sampling{Temperature: 0.7, TopP: 0.9, TopK: 40, RepeatPenalty: 1.1, ContextLength: 8192},
		sizing: map[string][2]string{
			"Q8_0":   {"~3.8 GB", "Highest fidelity; ideal on 8 GB+ GPUs."},
			"Q6_K":   {"~3.1 GB", "Near-lossless; good for 6 GB GPUs."},
			"Q5_K_M": {"~2.7 GB", "Best balance of quality and size."},
			"Q4_K_M": {"~2.4 GB", "Recommended default for most users."},
			"Q3_K_M": {"~2.0 GB", "Tight memory budgets; mild quality loss."},
			"Q2_K":   {"~1.7 GB", "Smallest footprint; noticeable degradation."},
		},
	},
	"llama-3.1-8b": {
		Name:            "llama-3.1-8b",
		ModelName:       "Llama-3.1-8B-Instruct",
		BaseModel:       "meta-llama/Llama-3.1-8B-Instruct",
		License:         "llama3.1",
		SourcePrecision: "f16",
		Levels:          defaultLevels,
		Languages:       llamaLanguages,
		Tags:            []string{"gguf", "quantized", "llama", "llama-3.1", "llama-cpp"},
		Description:     "An 8B instruction-tuned model with strong reasoning and multilingual chat.",
		PromptTemplate:  llama3Template,
		Sampling:        Sampling{Temperature: 0.7, TopP: 0.9, TopK: 40, RepeatPenalty: 1.1, ContextLength: 16384},
		sizing: map[string][2]string{
			"Q8_0":   {"~9.0 GB", "Highest fidelity; needs a 12 GB+ GPU or plenty of RAM."},
			"Q6_K":   {"~7.0 GB", "Near-lossless; fits 8 GB GPUs with short contexts."},
			"Q5_K_M": {"~6.1 GB", "Best balance of quality and size."},
			"Q4_K_M": {"~5.4 GB", "Recommended default for 8 GB machines."},
			"Q3_K_M": {"~4.5 GB", "Low-memory systems; some reasoning loss."},
			"Q2_K":   {"~3.7 GB", "Last resort for very constrained hardware."},
		},
	},
}
