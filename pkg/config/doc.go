/*
Package config manages the api key and the optional settings file for twinsync.

	            +-------------+
	            |  Settings   |
	            +------+------+
	                   |
	      +------------+------------+
	      |            |            |
	+-----+----+ +-----+----+ +-----+----+
	|   YAML   | |   JSON   | |   HCL    |
	|  Parser  | |  Parser  | |  Parser  |
	+----------+ +----------+ +----------+

🎯 Purpose:
- Reads the Anthropic api key from ~/.twinsync/api_key
- Loads ~/.twinsync/config.{yaml,yml,json,hcl} or an explicit --config path
- Validates the model against the fixed model list
- Applies defaults for max tokens, settle delay and request timeout

🔄 Flow:
1. The CLI resolves paths under the user's home directory
2. The parser is picked from the file extension
3. Validate fills defaults and parses durations
4. The CLI overrides the model when --model is given

🔍 Example:

	settings, err := config.LoadSettings(ctx, afero.NewOsFs(), "")
	if err != nil {
		return err
	}
	fmt.Println(settings.Model, settings.SettleDelayDuration())
*/
package config
