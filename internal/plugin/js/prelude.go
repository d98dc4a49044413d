package js

// prelude is evaluated once per Host, after the editor global is
// installed and before any plugin code runs. It builds the public
// asynchronous API on top of the low-level _xxxStart / _registerPending /
// _cancelRequest hooks so that the promise machinery lives entirely in
// the interpreter.
const prelude = `(function() {
	"use strict";

	function promiseFor(id) {
		if (!id) {
			return Promise.reject(new Error("editor command channel is full"));
		}
		return new Promise(function(resolve, reject) {
			editor._registerPending(id, resolve, reject);
		});
	}

	function thenableFor(id) {
		var p = promiseFor(id);
		p.cancel = function() {
			return id ? editor._cancelRequest(id) : false;
		};
		return p;
	}

	editor.delay = function(millis) {
		return promiseFor(editor._delayStart(millis));
	};

	editor.getBufferText = function(buffer, start, end) {
		if (start === undefined) start = 0;
		if (end === undefined) end = -1;
		return promiseFor(editor._getBufferTextStart(buffer, start, end));
	};

	editor.spawnBackgroundProcess = function(command, args, dir) {
		return promiseFor(editor._spawnBackgroundProcessStart(command, args || [], dir || ""));
	};

	editor.killProcess = function(pid) {
		return promiseFor(editor._killProcessStart(pid));
	};

	editor.spawnProcess = function(command, args, dir) {
		return thenableFor(editor._spawnProcessStart(command, args || [], dir || ""));
	};
})();`
